package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ops smoke probe for a running api.
//
// It reads the stats, fires N concurrent retries of one fresh idempotency key at the
// synthetic test endpoint, reads the stats again and checks that exactly one request was
// counted as unique.

type probeConfig struct {
	BaseURL  string
	AdminKey string
	N        int
	Timeout  time.Duration
}

type snapshot struct {
	Present        int64  `json:"present"`
	Unique         int64  `json:"unique"`
	Dupes          int64  `json:"dupes"`
	DupePercentage string `json:"dupePercentage"`
}

type statsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Window5m    snapshot `json:"window5m"`
		Window60m   snapshot `json:"window60m"`
		TrackedKeys int      `json:"trackedKeys"`
	} `json:"data"`
}

func main() {
	cfg, err := loadProbeConfig()
	if err != nil {
		log.Fatalf("invalid probe config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := run(ctx, cfg, http.DefaultClient, os.Stdout); err != nil {
		log.Fatalf("probe failed: %v", err)
	}
}

func run(ctx context.Context, cfg probeConfig, client *http.Client, out io.Writer) error {
	if cfg.N < 1 {
		return fmt.Errorf("N must be at least 1, got %d", cfg.N)
	}

	before, err := fetchStats(ctx, cfg, client)
	if err != nil {
		return fmt.Errorf("stats before: %w", err)
	}

	key := uuid.NewString()
	errs := make(chan error, cfg.N)
	var wg sync.WaitGroup
	for i := 0; i < cfg.N; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fireTest(ctx, cfg, client, key)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	after, err := fetchStats(ctx, cfg, client)
	if err != nil {
		return fmt.Errorf("stats after: %w", err)
	}

	b, a := before.Data.Window5m, after.Data.Window5m
	fmt.Fprintf(out, "key=%s requests=%d\n", key, cfg.N)
	fmt.Fprintf(out, "window5m  present=%d unique=%d dupes=%d dupePercentage=%s\n", a.Present, a.Unique, a.Dupes, a.DupePercentage)
	fmt.Fprintf(out, "window60m present=%d unique=%d dupes=%d dupePercentage=%s\n",
		after.Data.Window60m.Present, after.Data.Window60m.Unique, after.Data.Window60m.Dupes, after.Data.Window60m.DupePercentage)

	// Other traffic may land between the two reads, so only lower bounds are checked.
	if a.Unique-b.Unique < 1 || a.Dupes-b.Dupes < int64(cfg.N-1) {
		return fmt.Errorf("window5m delta unique=+%d dupes=+%d, want at least +1/+%d", a.Unique-b.Unique, a.Dupes-b.Dupes, cfg.N-1)
	}
	return nil
}

func fireTest(ctx context.Context, cfg probeConfig, client *http.Client, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/ops/idem/test", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Key", cfg.AdminKey)
	req.Header.Set("X-Idempotency-Key", key)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("test endpoint: status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("x-idempotency-observed"); got != "present" {
		return fmt.Errorf("test endpoint: x-idempotency-observed=%q", got)
	}
	return nil
}

func fetchStats(ctx context.Context, cfg probeConfig, client *http.Client) (statsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/ops/idem/stats", nil)
	if err != nil {
		return statsResponse{}, err
	}
	req.Header.Set("X-Admin-Key", cfg.AdminKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return statsResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statsResponse{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return statsResponse{}, fmt.Errorf("decode: %w", err)
	}
	if !out.Success {
		return statsResponse{}, fmt.Errorf("success=false")
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func loadProbeConfig() (probeConfig, error) {
	cfg := probeConfig{
		BaseURL:  strings.TrimRight(getenv("TARGET", "http://localhost:8080"), "/"),
		AdminKey: getenv("ADMIN_KEY", ""),
		N:        5,
		Timeout:  10 * time.Second,
	}
	if cfg.AdminKey == "" {
		return probeConfig{}, fmt.Errorf("missing required env var: ADMIN_KEY")
	}

	if v := strings.TrimSpace(os.Getenv("N")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return probeConfig{}, fmt.Errorf("invalid N: %w", err)
		}
		if n < 1 {
			return probeConfig{}, fmt.Errorf("invalid N: must be at least 1, got %d", n)
		}
		cfg.N = n
	}

	if v := strings.TrimSpace(os.Getenv("TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return probeConfig{}, fmt.Errorf("invalid TIMEOUT: %w", err)
		}
		if d <= 0 {
			return probeConfig{}, fmt.Errorf("invalid TIMEOUT: must be positive, got %s", d)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
