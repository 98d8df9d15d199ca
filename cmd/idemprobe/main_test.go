package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/idem-ops-api/internal/adapters/memory/idempotency"
	"github.com/Overland-East-Bay/idem-ops-api/internal/app/idem"
	platformclock "github.com/Overland-East-Bay/idem-ops-api/internal/platform/clock"
)

func newProbeTarget(t *testing.T, adminKey string) *httptest.Server {
	t.Helper()
	clk := platformclock.NewSystemClock()
	svc := idem.NewService(memidempotency.NewStore(clk, 0), clk)
	srv := httptest.NewServer(httpapi.NewRouter(svc, httpapi.RouterOptions{
		AdminKey:          adminKey,
		DisableRequestLog: true,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_ReportsOneUnique(t *testing.T) {
	t.Parallel()

	srv := newProbeTarget(t, "probe-key")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	cfg := probeConfig{BaseURL: srv.URL, AdminKey: "probe-key", N: 4}
	if err := run(ctx, cfg, srv.Client(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "window5m  present=4 unique=1 dupes=3 dupePercentage=75.0") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRun_WrongAdminKey(t *testing.T) {
	t.Parallel()

	srv := newProbeTarget(t, "probe-key")
	cfg := probeConfig{BaseURL: srv.URL, AdminKey: "nope", N: 2}
	err := run(context.Background(), cfg, srv.Client(), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("err=%v want status 403", err)
	}
}

func TestRun_RejectsZeroRequests(t *testing.T) {
	t.Parallel()

	if err := run(context.Background(), probeConfig{N: 0}, nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for N=0")
	}
}

func TestLoadProbeConfig_Defaults(t *testing.T) {
	t.Setenv("TARGET", "http://ops.internal:8080/")
	t.Setenv("ADMIN_KEY", "s3cret")
	t.Setenv("N", "")
	t.Setenv("TIMEOUT", "")

	cfg, err := loadProbeConfig()
	if err != nil {
		t.Fatalf("loadProbeConfig: %v", err)
	}
	if cfg.BaseURL != "http://ops.internal:8080" || cfg.N != 5 || cfg.Timeout != 10*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadProbeConfig_Overrides(t *testing.T) {
	t.Setenv("TARGET", "")
	t.Setenv("ADMIN_KEY", "s3cret")
	t.Setenv("N", "12")
	t.Setenv("TIMEOUT", "30s")

	cfg, err := loadProbeConfig()
	if err != nil {
		t.Fatalf("loadProbeConfig: %v", err)
	}
	if cfg.N != 12 || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadProbeConfig_Errors(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantSub string
	}{
		{"missing admin key", map[string]string{"ADMIN_KEY": ""}, "ADMIN_KEY"},
		{"malformed N", map[string]string{"N": "abc"}, "invalid N"},
		{"zero N", map[string]string{"N": "0"}, "invalid N"},
		{"malformed timeout", map[string]string{"TIMEOUT": "soon"}, "invalid TIMEOUT"},
		{"negative timeout", map[string]string{"TIMEOUT": "-1s"}, "invalid TIMEOUT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TARGET", "")
			t.Setenv("ADMIN_KEY", "s3cret")
			t.Setenv("N", "")
			t.Setenv("TIMEOUT", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := loadProbeConfig()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("err=%q want substring %q", err, tc.wantSub)
			}
		})
	}
}
