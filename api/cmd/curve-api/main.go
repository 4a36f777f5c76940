package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"stress-curve/api/internal/config"
	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/handle"
	"stress-curve/api/internal/httpserver"
	"stress-curve/api/internal/logging"
	"stress-curve/api/internal/metrics"
	"stress-curve/api/internal/store"
)

const purgeInterval = time.Hour

func main() {
	fs := pflag.NewFlagSet("curve-api", pflag.ExitOnError)
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error(err, "curve-api exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := cfg.CalculatorOptions()
	if err != nil {
		return fmt.Errorf("calculator options: %w", err)
	}
	calc := curve.New(opts)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	hopts := []handle.Option{handle.WithLogger(log)}
	if dsn := store.ResolveDSN(cfg.DatabaseURL); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", "dsn", store.SafeDSNSummary(dsn))

		repo := store.NewCurveRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if cfg.CacheMaxAge > 0 {
			go purgeLoop(ctx, repo, cfg.CacheMaxAge, log)
		}
		hopts = append(hopts, handle.WithCache(repo, cfg.CacheMaxAge, cfg.CacheTimeout))
	} else {
		log.Info("curve cache disabled: no database configured")
	}

	mux := http.NewServeMux()
	handle.New(calc, hopts...).Routes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	h := httpserver.Chain(mux,
		httpserver.RequestLog(log),
		httpserver.CORS(cfg.AllowedOrigins),
	)
	log.Info("curve-api starting",
		"mode", calc.DefaultMode(),
		"points", calc.DefaultPoints(),
		"maxPoints", calc.MaxPoints(),
		"models", len(calc.Catalogue()),
	)
	return httpserver.Run(ctx, httpserver.New(net.JoinHostPort("", cfg.Port), h), cfg.ShutdownGrace, log)
}

func purgeLoop(ctx context.Context, repo *store.CurveRepo, maxAge time.Duration, log logr.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeOlderThan(ctx, maxAge)
			if err != nil {
				log.Error(err, "purge curve cache")
				continue
			}
			log.V(logging.DEBUG).Info("purged curve cache", "rows", n)
		}
	}
}
