package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/staffline/boond-sync/pkg/boond"
)

// Validate checks that the fields a command mode depends on are set.
// Modes: "client" (one environment), "sync" (both environments), "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "client":
		if len(c.Boond.Environments()) == 0 {
			errs = append(errs, "at least one of boond.production.base_url or boond.sandbox.base_url is required")
		}
	case "sync":
		envs := c.Boond.Environments()
		for _, env := range boond.Environments {
			if _, ok := envs[env]; !ok {
				errs = append(errs, fmt.Sprintf("boond.%s.base_url is required", env))
			}
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if len(c.Boond.Environments()) == 0 {
			errs = append(errs, "at least one of boond.production.base_url or boond.sandbox.base_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Sync.PageSize < 1 || c.Sync.PageSize > 500 {
		errs = append(errs, "sync.page_size must be between 1 and 500")
	}
	if c.Sync.Concurrency < 1 || c.Sync.Concurrency > 16 {
		errs = append(errs, "sync.concurrency must be between 1 and 16")
	}
	if c.Boond.RateLimit < 0 {
		errs = append(errs, "boond.rate_limit must be >= 0")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
