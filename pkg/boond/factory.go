package boond

import (
	"sync"

	"github.com/rotisserie/eris"
)

// EnvironmentConfig holds the endpoint and credentials of one environment.
type EnvironmentConfig struct {
	BaseURL     string      `mapstructure:"base_url"`
	Credentials Credentials `mapstructure:",squash"`
}

// Factory builds one client per environment, each authenticated with that
// environment's credentials only. Clients are created lazily and reused so
// rate limits hold across callers.
type Factory struct {
	envs    map[Environment]EnvironmentConfig
	options func(Environment) []Option

	mu      sync.Mutex
	clients map[Environment]Client
}

// NewFactory creates a factory. options, if non-nil, supplies per-environment
// client options (breaker, observer, rate limit).
func NewFactory(envs map[Environment]EnvironmentConfig, options func(Environment) []Option) *Factory {
	return &Factory{
		envs:    envs,
		options: options,
		clients: make(map[Environment]Client),
	}
}

// Client returns the client for env, creating it on first use.
func (f *Factory) Client(env Environment) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[env]; ok {
		return c, nil
	}
	cfg, ok := f.envs[env]
	if !ok {
		return nil, eris.Errorf("boond: environment %s is not configured", env)
	}
	var opts []Option
	if f.options != nil {
		opts = f.options(env)
	}
	c, err := NewClient(env, cfg.BaseURL, cfg.Credentials, opts...)
	if err != nil {
		return nil, err
	}
	f.clients[env] = c
	return c, nil
}

// Clients returns a client for every configured environment.
func (f *Factory) Clients() (map[Environment]Client, error) {
	out := make(map[Environment]Client, len(f.envs))
	for _, env := range Environments {
		if _, ok := f.envs[env]; !ok {
			continue
		}
		c, err := f.Client(env)
		if err != nil {
			return nil, err
		}
		out[env] = c
	}
	return out, nil
}
