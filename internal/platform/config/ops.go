package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/domain"
)

// OpsConfig configures the idempotency guard and its ops endpoints.
type OpsConfig struct {
	// AdminKey is the shared secret expected in X-Admin-Key on /api/ops/idem/*.
	AdminKey string

	// KeyRetention is how long an idempotency key is remembered. Never shorter than the
	// longest tracked window.
	KeyRetention time.Duration
	// SweepInterval is how often expired keys are evicted in the background. 0 disables the
	// sweeper; expiry is still enforced lazily on observe.
	SweepInterval time.Duration

	// UpstreamURL, when set, is the application that guarded traffic is proxied to.
	UpstreamURL *url.URL

	ShutdownTimeout time.Duration
}

func LoadOpsConfigFromEnv() (OpsConfig, error) {
	adminKey := strings.TrimSpace(os.Getenv("ADMIN_KEY"))
	if adminKey == "" {
		return OpsConfig{}, fmt.Errorf("missing required env var: ADMIN_KEY")
	}

	cfg := OpsConfig{
		AdminKey:        adminKey,
		KeyRetention:    domain.LongestWindow().Size,
		SweepInterval:   time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("IDEM_KEY_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return OpsConfig{}, fmt.Errorf("IDEM_KEY_RETENTION must be a duration (e.g. 60m): %w", err)
		}
		if d < domain.LongestWindow().Size {
			return OpsConfig{}, fmt.Errorf("IDEM_KEY_RETENTION must be at least %s, got %s", domain.LongestWindow().Size, d)
		}
		cfg.KeyRetention = d
	}
	if v := os.Getenv("IDEM_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return OpsConfig{}, fmt.Errorf("IDEM_SWEEP_INTERVAL must be a duration (e.g. 1m): %w", err)
		}
		if d < 0 {
			return OpsConfig{}, fmt.Errorf("IDEM_SWEEP_INTERVAL must not be negative, got %s", d)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return OpsConfig{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration (e.g. 10s): %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		u, err := url.Parse(v)
		if err != nil {
			return OpsConfig{}, fmt.Errorf("UPSTREAM_URL must be an absolute URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return OpsConfig{}, fmt.Errorf("UPSTREAM_URL must be an absolute URL, got %q", v)
		}
		cfg.UpstreamURL = u
	}

	return cfg, nil
}
