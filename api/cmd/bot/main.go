package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"stress-curve/api/internal/config"
	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/httpserver"
	"stress-curve/api/internal/logging"
	"stress-curve/api/internal/metrics"
	"stress-curve/api/internal/telegram"
	"stress-curve/api/internal/util"
)

func main() {
	fs := pflag.NewFlagSet("bot", pflag.ExitOnError)
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err == nil {
		err = cfg.RequireTelegram()
	}
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
		log.Error(err, "bot exited")
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

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Info("authorized", "bot", bot.Self.UserName)

	r := &telegram.Router{
		Bot:  bot,
		Calc: curve.New(opts),
		Log:  log.WithName("telegram"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	addr := net.JoinHostPort("", cfg.Port)
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		if err := setupWebhook(bot, mux, r, webhookURL, log); err != nil {
			return err
		}
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Error(err, "delete webhook")
		}
		// устойчивый поллинг с backoff, без log.Fatal/os.Exit
		go runPolling(ctx, bot, r.HandleUpdate, log)
	}

	srv := httpserver.New(addr, httpserver.Chain(mux, httpserver.RequestLog(log)))
	return httpserver.Run(ctx, srv, cfg.ShutdownGrace, log)
}

// setupWebhook registers the public URL with Telegram and serves updates
// on a path derived from the token.
func setupWebhook(bot *tgbotapi.BotAPI, mux *http.ServeMux, r *telegram.Router, baseURL string, log logr.Logger) error {
	// секретный путь вебхука
	path := "/webhook/" + util.ShortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	mux.HandleFunc("POST "+path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Error(err, "bad webhook update")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.HandleUpdate(*upd)
	})
	log.Info("webhook registered", "path", path)
	return nil
}
