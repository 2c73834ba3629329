package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/hasbyte1/go-ircservices/config"
	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
	"github.com/hasbyte1/go-ircservices/internal/app"
)

// credential is a throwaway hashing.Record.
type credential struct{ value string }

func (c *credential) Credential() string     { return c.value }
func (c *credential) SetCredential(v string) { c.value = v }

func loadConfig(path string) (*config.Config, *digest.Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	engine, err := app.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, engine, nil
}

// hasherFor returns the driver that can read stored.
func hasherFor(cfg *config.Config, engine *digest.Engine, stored string) (hashing.Hasher, error) {
	driver, ok := hashing.DetectDriver(stored)
	if !ok {
		return nil, errors.New("unrecognised credential format")
	}
	return app.NewHasher(cfg, engine, string(driver))
}

func genpasswdCommand() *command {
	var configPath, scheme, passwordFile string

	return &command{
		Name:    "genpasswd",
		Summary: "hash a password under the configured or given scheme",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("genpasswd", pflag.ContinueOnError)
			fs.StringVarP(&configPath, "config", "c", "", "configuration file")
			fs.StringVar(&scheme, "scheme", "", "scheme to hash with (default crypto.scheme)")
			fs.StringVar(&passwordFile, "password-file", "", "read the password from this file")
			return fs
		},
		Run: func(sio *stdio, args []string) error {
			if len(args) > 0 {
				return errors.Errorf("unexpected argument: %s", args[0])
			}
			cfg, engine, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if scheme == "" {
				scheme = cfg.Crypto.Scheme
			}
			h, err := app.NewHasher(cfg, engine, scheme)
			if err != nil {
				return err
			}

			reg := hashing.NewRegistry()
			if _, err := reg.Install(h); err != nil {
				return errors.Wrapf(err, "install %s", h.Driver())
			}

			password, err := readPassword(sio, passwordFile)
			if err != nil {
				return err
			}
			var rec credential
			if err := reg.SetCredential(&rec, password); err != nil {
				return err
			}
			fmt.Fprintln(sio.out, rec.value)
			return nil
		},
	}
}

func verifyCommand() *command {
	var configPath, passwordFile string

	return &command{
		Name:    "verify",
		Summary: "check a password against a stored credential",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			fs.StringVarP(&configPath, "config", "c", "", "configuration file")
			fs.StringVar(&passwordFile, "password-file", "", "read the password from this file")
			return fs
		},
		Run: func(sio *stdio, args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one credential argument")
			}
			cfg, engine, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			h, err := hasherFor(cfg, engine, args[0])
			if err != nil {
				return err
			}
			password, err := readPassword(sio, passwordFile)
			if err != nil {
				return err
			}
			ok, err := h.Check(password, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errMismatch
			}
			fmt.Fprintln(sio.out, "match")
			return nil
		},
	}
}

func inspectCommand() *command {
	return &command{
		Name:    "inspect",
		Summary: "print the scheme and parameters of a stored credential",
		Flags: func() *pflag.FlagSet {
			return pflag.NewFlagSet("inspect", pflag.ContinueOnError)
		},
		Run: func(sio *stdio, args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one credential argument")
			}
			cfg := config.Default()
			h, err := hasherFor(cfg, digest.New(digest.Std), args[0])
			if err != nil {
				return err
			}
			info, err := h.Info(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(sio.out)
			return enc.Encode(map[string]any{
				"driver": info.Driver,
				"params": info.Params,
			})
		},
	}
}

type digestVector struct {
	alg  digest.Algorithm
	key  []byte
	msg  string
	want string
}

var digestVectors = []digestVector{
	{alg: digest.MD5, msg: "abc", want: "900150983cd24fb0d6963f7d28e17f72"},
	{alg: digest.SHA1, msg: "abc", want: "a9993e364706816aba3e25717850c26c9cd0d89d"},
	{alg: digest.SHA256, msg: "abc", want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	{alg: digest.SHA512, msg: "abc", want: "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	// RFC 4231 test case 2
	{alg: digest.SHA256, key: []byte("Jefe"), msg: "what do ya want for nothing?", want: "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"},
}

func selftestCommand() *command {
	return &command{
		Name:    "selftest",
		Summary: "run the known-answer tests of every scheme and digest backend",
		Flags: func() *pflag.FlagSet {
			return pflag.NewFlagSet("selftest", pflag.ContinueOnError)
		},
		Run: func(sio *stdio, args []string) error {
			failed := 0
			report := func(name string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(sio.out, "FAIL %s: %v\n", name, err)
					return
				}
				fmt.Fprintf(sio.out, "ok   %s\n", name)
			}

			report("bcrypt", hashing.BcryptSelfTest())

			for _, backend := range []digest.Backend{digest.Std, digest.SIMD} {
				engine := digest.New(backend)
				for _, v := range digestVectors {
					name := fmt.Sprintf("%s/%s", backend.Name(), v.alg)
					if v.key != nil {
						name += "/hmac"
					}
					report(name, checkDigest(engine, v))
				}
			}

			if failed > 0 {
				return errors.Errorf("%d known-answer tests failed", failed)
			}
			return nil
		},
	}
}

func checkDigest(engine *digest.Engine, v digestVector) error {
	msg := digest.Vector{[]byte(v.msg)}
	var (
		got []byte
		err error
	)
	if v.key != nil {
		got, err = engine.HMAC(v.alg, v.key, msg)
	} else {
		got, err = engine.Oneshot(v.alg, msg)
	}
	if err != nil {
		return err
	}
	want, _ := hex.DecodeString(v.want)
	if !bytes.Equal(got, want) {
		return errors.Errorf("got %x, want %s", got, v.want)
	}
	return nil
}

func digestCommand() *command {
	var algorithm, backendName, hmacKey string

	return &command{
		Name:    "digest",
		Summary: "hash a file or standard input with a digest backend",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("digest", pflag.ContinueOnError)
			fs.StringVarP(&algorithm, "algorithm", "a", "sha256", "md5, sha1, sha256 or sha512")
			fs.StringVar(&backendName, "backend", "std", "digest backend: std or simd")
			fs.StringVar(&hmacKey, "hmac-key", "", "compute an HMAC with this key")
			return fs
		},
		Run: func(sio *stdio, args []string) error {
			alg, err := digest.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			backend, err := digest.BackendByName(backendName)
			if err != nil {
				return err
			}

			in := sio.in
			switch len(args) {
			case 0:
			case 1:
				f, err := os.Open(args[0])
				if err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				in = f
			default:
				return errors.New("expected at most one file argument")
			}

			var key []byte
			if hmacKey != "" {
				key = []byte(hmacKey)
			}
			c, err := digest.New(backend).Init(alg, key)
			if err != nil {
				return err
			}

			buf := make([]byte, 32*1024)
			for {
				n, rerr := in.Read(buf)
				if n > 0 {
					if err := c.Update(buf[:n]); err != nil {
						return err
					}
				}
				if rerr == io.EOF {
					break
				}
				if rerr != nil {
					return errors.Wrap(rerr, "read input")
				}
			}
			sum, err := c.Final()
			if err != nil {
				return err
			}
			fmt.Fprintln(sio.out, hex.EncodeToString(sum))
			return nil
		},
	}
}
