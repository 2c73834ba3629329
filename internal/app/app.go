package app

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/hasbyte1/go-ircservices/account"
	"github.com/hasbyte1/go-ircservices/config"
	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
	"github.com/hasbyte1/go-ircservices/internal/logs"
	"github.com/hasbyte1/go-ircservices/ticket"
)

// Module provides the credential stack for a *config.Config supplied by the
// caller. The configured scheme is installed on start and restored on stop.
var Module = fx.Module("services",
	fx.Provide(
		logs.New,
		clock.New,
		newMetricsRegistry,
		func(r *prometheus.Registry) prometheus.Registerer { return r },
		func(r *prometheus.Registry) prometheus.Gatherer { return r },
		NewEngine,
		NewRegistry,
		NewPool,
		NewTickets,
		account.NewStore,
		NewService,
	),
)

func newMetricsRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// NewEngine returns the digest engine on the configured backend.
func NewEngine(cfg *config.Config) (*digest.Engine, error) {
	backend, err := digest.BackendByName(cfg.Digest.Backend)
	if err != nil {
		return nil, errors.Wrap(err, "digest engine")
	}
	return digest.New(backend), nil
}

type RegistryParams struct {
	fx.In
	fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Engine  *digest.Engine
	Metrics prometheus.Registerer

	// Scheme replaces the hasher built from crypto.scheme.
	Scheme hashing.Hasher `optional:"true" name:"active_scheme"`
}

// NewRegistry builds the credential registry with every configured legacy
// scheme. The configured scheme is also registered as a legacy verifier, so
// its credentials stay readable if it is refused or later replaced.
//
// The start hook installs the configured scheme. A scheme that fails its
// self-test is logged and left uninstalled; startup continues and new
// credentials are refused until a working scheme is installed.
func NewRegistry(params RegistryParams) (*hashing.Registry, error) {
	logger := params.Logger.With("component", "credentials")
	reg := hashing.NewRegistry(hashing.WithLogger(logger), hashing.WithMetrics(params.Metrics))

	active := params.Scheme
	if active == nil {
		var err error
		active, err = NewHasher(params.Config, params.Engine, params.Config.Crypto.Scheme)
		if err != nil {
			return nil, errors.Wrap(err, "active scheme")
		}
	}

	listed := false
	for _, name := range params.Config.Crypto.Legacy {
		h := active
		if driver, _ := hashing.ParseDriverName(name); driver == active.Driver() {
			listed = true
		} else {
			var err error
			h, err = NewHasher(params.Config, params.Engine, name)
			if err != nil {
				return nil, errors.Wrap(err, "legacy scheme")
			}
		}
		if err := reg.AddLegacy(h); err != nil {
			return nil, errors.Wrapf(err, "add legacy scheme %s", name)
		}
	}
	if !listed {
		if err := reg.AddLegacy(active); err != nil {
			return nil, errors.Wrapf(err, "add legacy scheme %s", active.Driver())
		}
	}

	var (
		prev      hashing.Handle
		installed bool
	)
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			h, err := reg.Install(active)
			switch {
			case errors.Is(err, hashing.ErrSelfTestFailed):
				logger.Warn("starting without an active password scheme",
					slog.String("driver", string(active.Driver())))
				return nil
			case err != nil:
				return errors.Wrapf(err, "install %s", active.Driver())
			}
			prev, installed = h, true
			return nil
		},
		OnStop: func(context.Context) error {
			if installed {
				reg.Restore(prev)
			}
			return nil
		},
	})

	return reg, nil
}

type PoolParams struct {
	fx.In
	fx.Lifecycle

	Config   *config.Config
	Registry *hashing.Registry
}

// NewPool returns nil when crypto.workers is zero, in which case credentials
// are verified on the caller's goroutine.
func NewPool(params PoolParams) (*hashing.Pool, error) {
	if params.Config.Crypto.Workers == 0 {
		return nil, nil
	}
	pool, err := hashing.NewPool(params.Registry, params.Config.Crypto.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "verification pool")
	}
	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Wait()
			return nil
		},
	})
	return pool, nil
}

type TicketParams struct {
	fx.In
	fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Clock   clock.Clock
	Engine  *digest.Engine
	Metrics prometheus.Registerer
}

// NewTickets returns the authcookie manager. Every live cookie is destroyed
// on stop.
func NewTickets(params TicketParams) (*ticket.Manager[string], error) {
	m, err := ticket.NewManager[string](params.Engine,
		ticket.WithClock(params.Clock),
		ticket.WithLifetime(params.Config.Authcookie.Lifetime),
		ticket.WithLogger(params.Logger.With("component", "authcookie")),
		ticket.WithMetrics(params.Metrics),
	)
	if err != nil {
		return nil, errors.Wrap(err, "authcookie manager")
	}
	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Close()
			return nil
		},
	})
	return m, nil
}

type ServiceParams struct {
	fx.In

	Logger   *slog.Logger
	Store    *account.Store
	Registry *hashing.Registry
	Tickets  *ticket.Manager[string]
	Pool     *hashing.Pool `optional:"true"`
}

func NewService(params ServiceParams) *account.Service {
	return account.NewService(params.Store, params.Registry, params.Tickets,
		account.WithPool(params.Pool),
		account.WithServiceLogger(params.Logger.With("component", "account")),
	)
}
