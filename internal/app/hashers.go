package app

import (
	"github.com/pkg/errors"

	"github.com/hasbyte1/go-ircservices/config"
	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
)

// NewHasher builds the driver named by name from the crypto configuration.
func NewHasher(cfg *config.Config, engine *digest.Engine, name string) (hashing.Hasher, error) {
	driver, ok := hashing.ParseDriverName(name)
	if !ok {
		return nil, errors.Errorf("unknown password scheme %q", name)
	}

	var (
		h   hashing.Hasher
		err error
	)
	switch driver {
	case hashing.DriverBcrypt:
		h, err = hashing.NewBcryptHasher(hashing.BcryptOptions{Cost: cfg.Crypto.Bcrypt.Cost, Random: engine})
	case hashing.DriverScrypt:
		opts := hashing.DefaultScryptOptions()
		opts.MemCost = cfg.Crypto.Scrypt.MemCost
		opts.OpsCost = cfg.Crypto.Scrypt.OpsCost
		opts.Random = engine
		h, err = hashing.NewScryptHasher(opts)
	case hashing.DriverCrypt3:
		h, err = hashing.NewCrypt3Hasher(hashing.Crypt3Options{Rounds: cfg.Crypto.Crypt3.Rounds, Random: engine})
	case hashing.DriverSaltedMD5:
		h, err = hashing.NewSaltedMD5Hasher(engine)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "build %s hasher", driver)
	}
	return h, nil
}
