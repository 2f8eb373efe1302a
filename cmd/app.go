package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/staffline/boond-sync/internal/config"
	"github.com/staffline/boond-sync/internal/monitoring"
	"github.com/staffline/boond-sync/internal/resilience"
	"github.com/staffline/boond-sync/internal/store"
	boondsync "github.com/staffline/boond-sync/internal/sync"
	"github.com/staffline/boond-sync/pkg/boond"
)

// appEnv holds the wired dependencies of one command invocation.
type appEnv struct {
	DefaultEnv boond.Environment
	Store      store.Store
	Breakers   *resilience.Breakers
	Metrics    *monitoring.Metrics
	Factory    *boond.Factory
	Service    *boondsync.Service
}

// Close releases the store.
func (a *appEnv) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}

// Environment resolves the --env flag against the configured default.
func (a *appEnv) Environment() (boond.Environment, error) {
	return boond.EnvironmentOr(envFlag, a.DefaultEnv)
}

// Client returns the client of the --env environment.
func (a *appEnv) Client() (boond.Client, boond.Environment, error) {
	env, err := a.Environment()
	if err != nil {
		return nil, "", err
	}
	c, err := a.Service.Client(env)
	return c, env, err
}

// initApp validates cfg for mode and wires clients, store and service.
// withStore opens and migrates the configured store.
func initApp(ctx context.Context, mode string, withStore bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	def, err := cfg.Boond.Default()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	var breakers *resilience.Breakers
	if cfg.Boond.Circuit.FailureThreshold > 0 {
		breakers = resilience.NewBreakers(resilience.FromCircuitConfig(
			cfg.Boond.Circuit.FailureThreshold, cfg.Boond.Circuit.ResetTimeoutSecs,
		)).OnChange(metrics.BreakerChanged)
	}

	factory := boond.NewFactory(cfg.Boond.Environments(), clientOptions(cfg.Boond, breakers, metrics))
	clients, err := factory.Clients()
	if err != nil {
		return nil, eris.Wrap(err, "init boond clients")
	}

	app := &appEnv{
		DefaultEnv: def,
		Breakers:   breakers,
		Metrics:    metrics,
		Factory:    factory,
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		app.Store = st
	}

	app.Service = boondsync.New(clients,
		boondsync.WithStore(app.Store),
		boondsync.WithPageSize(cfg.Sync.PageSize),
		boondsync.WithConcurrency(cfg.Sync.Concurrency),
		boondsync.WithDocuments(cfg.Sync.IncludeDocuments),
		boondsync.WithXrefField(cfg.Sync.XrefField),
		boondsync.WithCountryCode(cfg.Sync.CountryCode),
		boondsync.WithMetrics(metrics),
	)
	return app, nil
}

// initStore opens and migrates the configured store. It returns nil when
// the driver is "none".
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		zap.L().Info("store disabled, cross-references kept in memory")
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// clientOptions builds the per-environment client options from config.
func clientOptions(bc config.BoondConfig, breakers *resilience.Breakers, metrics *monitoring.Metrics) func(boond.Environment) []boond.Option {
	return func(env boond.Environment) []boond.Option {
		opts := []boond.Option{
			boond.WithRetryConfig(resilience.FromRetryConfig(
				bc.Retry.MaxAttempts, bc.Retry.InitialBackoffMs, bc.Retry.MaxBackoffMs,
				bc.Retry.Multiplier, bc.Retry.JitterFraction,
			)),
			boond.WithObserver(metrics.ObserveRequest),
		}
		if bc.TimeoutSecs > 0 {
			opts = append(opts, boond.WithHTTPClient(&http.Client{
				Timeout: time.Duration(bc.TimeoutSecs) * time.Second,
				Transport: &http.Transport{
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			}))
		}
		if bc.RateLimit > 0 {
			opts = append(opts, boond.WithRateLimit(bc.RateLimit))
		}
		if breakers != nil {
			opts = append(opts, boond.WithCircuitBreaker(breakers.Get(string(env))))
		}
		return opts
	}
}
