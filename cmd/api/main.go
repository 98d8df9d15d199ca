package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Overland-East-Bay/idem-ops-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/idem-ops-api/internal/adapters/memory/idempotency"
	"github.com/Overland-East-Bay/idem-ops-api/internal/app/idem"
	platformclock "github.com/Overland-East-Bay/idem-ops-api/internal/platform/clock"
	"github.com/Overland-East-Bay/idem-ops-api/internal/platform/config"
)

func main() {
	port := getenv("PORT", "8080")

	cfg, err := config.LoadOpsConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid ops config: %v", err)
	}

	clk := platformclock.NewSystemClock()

	// Idempotency state is process-local; a restart forgets every key.
	store := memidempotency.NewStore(clk, cfg.KeyRetention)
	svc := idem.NewService(store, clk)
	svc.Logf = log.Printf

	opts := httpapi.RouterOptions{AdminKey: cfg.AdminKey}
	if cfg.UpstreamURL != nil {
		opts.Downstream = httpapi.NewUpstreamProxy(cfg.UpstreamURL)
		log.Printf("guarding upstream %s", cfg.UpstreamURL)
	}
	handler := httpapi.NewRouter(svc, opts)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.StartSweeper(cfg.SweepInterval)

	go func() {
		log.Printf("api listening on :%s (key retention %s, sweep every %s)", port, cfg.KeyRetention, cfg.SweepInterval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	svc.Close()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
