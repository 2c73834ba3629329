package config

import (
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto configuration keys: SERVICES_CRYPTO_BCRYPT_COST -> crypto.bcrypt.cost.
const EnvPrefix = "SERVICES_"

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	Digest struct {
		// Backend selects the digest implementation: "std" or "simd".
		Backend string `json:"backend" yaml:"backend"`
	} `json:"digest" yaml:"digest"`

	Crypto Crypto `json:"crypto" yaml:"crypto"`

	Authcookie struct {
		Lifetime time.Duration `json:"lifetime" yaml:"lifetime"`
	} `json:"authcookie" yaml:"authcookie"`

	Metrics struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Listen  string `json:"listen" yaml:"listen"`
	} `json:"metrics" yaml:"metrics"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// Crypto configures the password schemes.
type Crypto struct {
	// Scheme is the driver that hashes new credentials.
	Scheme string `json:"scheme" yaml:"scheme"`

	// Legacy lists, in order, the drivers tried for credentials the active
	// scheme did not write.
	Legacy []string `json:"legacy" yaml:"legacy"`

	// Workers bounds concurrent verifications. Zero verifies inline.
	Workers int `json:"workers" yaml:"workers"`

	Bcrypt struct {
		Cost int `json:"cost" yaml:"cost"`
	} `json:"bcrypt" yaml:"bcrypt"`

	Scrypt struct {
		MemCost uint   `json:"memCost" yaml:"memCost"`
		OpsCost uint64 `json:"opsCost" yaml:"opsCost"`
	} `json:"scrypt" yaml:"scrypt"`

	Crypt3 struct {
		Rounds int `json:"rounds" yaml:"rounds"`
	} `json:"crypt3" yaml:"crypt3"`
}

// DefaultLegacy is the legacy list used when none is configured.
var DefaultLegacy = []string{
	string(hashing.DriverBcrypt),
	string(hashing.DriverScrypt),
	string(hashing.DriverCrypt3),
	string(hashing.DriverSaltedMD5),
}

// Default returns the configuration used for every key that is not set.
func Default() *Config {
	cfg := new(Config)
	cfg.Env.Env = "production"
	cfg.Env.ServiceName = "services"
	cfg.Env.Log.Level = "info"
	cfg.Digest.Backend = "std"
	cfg.Crypto.Scheme = string(hashing.DriverBcrypt)
	cfg.Crypto.Bcrypt.Cost = hashing.DefaultBcryptCost
	cfg.Crypto.Scrypt.MemCost = hashing.DefaultScryptMemCost
	cfg.Crypto.Scrypt.OpsCost = hashing.DefaultScryptOpsCost
	cfg.Crypto.Crypt3.Rounds = hashing.DefaultCrypt3Rounds
	cfg.Authcookie.Lifetime = time.Hour
	cfg.Metrics.Listen = "127.0.0.1:9464"
	return cfg
}

// Load reads path, if not empty, and then SERVICES_-prefixed environment
// variables over Default(). The result is validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s failed", path)
		}
	}

	existingConfigMap := k.Raw()

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			// SERVICES_CRYPTO_SCRYPT_MEMCOST -> crypto.scrypt.memCost when the
			// file already spells the key in camel case.
			return canonicalizeEnvKey(strings.TrimPrefix(k, EnvPrefix), existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := Default()
	cfg.Crypto.Legacy = nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}
	if cfg.Crypto.Legacy == nil {
		cfg.Crypto.Legacy = append([]string(nil), DefaultLegacy...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks names and ranges without constructing anything.
func (c *Config) Validate() error {
	if _, err := digest.BackendByName(c.Digest.Backend); err != nil {
		return errors.Wrap(err, "digest.backend")
	}

	scheme, ok := hashing.ParseDriverName(c.Crypto.Scheme)
	if !ok {
		return errors.Errorf("crypto.scheme: unknown driver %q", c.Crypto.Scheme)
	}
	if scheme == hashing.DriverSaltedMD5 {
		return errors.Errorf("crypto.scheme: %s can only verify existing credentials", scheme)
	}
	for _, l := range c.Crypto.Legacy {
		if _, ok := hashing.ParseDriverName(l); !ok {
			return errors.Errorf("crypto.legacy: unknown driver %q", l)
		}
	}
	if c.Crypto.Workers < 0 {
		return errors.Errorf("crypto.workers: must not be negative, got %d", c.Crypto.Workers)
	}

	if cost := c.Crypto.Bcrypt.Cost; cost < hashing.BcryptMinCost || cost > hashing.BcryptMaxCost {
		return errors.Errorf("crypto.bcrypt.cost: %d not in [%d, %d]", cost, hashing.BcryptMinCost, hashing.BcryptMaxCost)
	}
	if _, err := hashing.ScryptParamsFor(c.Crypto.Scrypt.MemCost, c.Crypto.Scrypt.OpsCost); err != nil {
		return errors.Wrap(err, "crypto.scrypt")
	}
	if r := c.Crypto.Crypt3.Rounds; r < hashing.Crypt3MinRounds || r > hashing.Crypt3MaxRounds {
		return errors.Errorf("crypto.crypt3.rounds: %d not in [%d, %d]", r, hashing.Crypt3MinRounds, hashing.Crypt3MaxRounds)
	}

	if c.Authcookie.Lifetime <= 0 {
		return errors.Errorf("authcookie.lifetime: must be positive, got %s", c.Authcookie.Lifetime)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen: required when metrics are enabled")
	}
	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
