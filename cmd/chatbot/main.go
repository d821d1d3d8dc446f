// Command chatbot runs the chat relay: it bridges a Discord bot account
// and a chat completion API, keeping one bounded conversation session per
// user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/umarrg/chatbot/internal/bot"
	"github.com/umarrg/chatbot/internal/chat"
	"github.com/umarrg/chatbot/internal/completion/openai"
	"github.com/umarrg/chatbot/internal/config"
	"github.com/umarrg/chatbot/internal/discord"
	"github.com/umarrg/chatbot/internal/health"
	"github.com/umarrg/chatbot/internal/observe"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "chatbot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "chatbot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Level(),
	}))
	slog.SetDefault(logger)

	// ── Secrets ───────────────────────────────────────────────────────────────
	// .env is a development convenience; in production the variables are set
	// on the process directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "err", err)
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		slog.Error("missing credentials", "err", err)
		return 1
	}

	slog.Info("chatbot starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"model", cfg.Completion.Model,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "chatbot",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Session store ─────────────────────────────────────────────────────────
	store := chat.NewStore(chat.StoreConfig{
		Directive:   cfg.Session.Directive,
		MaxSessions: cfg.Session.MaxSessions,
	})
	if err := metrics.ObserveActiveSessions(func() int64 { return int64(store.Count()) }); err != nil {
		slog.Warn("could not register session gauge", "err", err)
	}

	// ── Completion client ─────────────────────────────────────────────────────
	var clientOpts []openai.Option
	if cfg.Completion.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.Completion.BaseURL))
	}
	if cfg.Completion.TimeoutSeconds > 0 {
		clientOpts = append(clientOpts, openai.WithTimeout(time.Duration(cfg.Completion.TimeoutSeconds)*time.Second))
	}
	client, err := openai.New(secrets.OpenAIKey, cfg.Completion.Model,
		cfg.Completion.MaxTokens, cfg.Completion.Temperature, clientOpts...)
	if err != nil {
		slog.Error("failed to create completion client", "err", err)
		return 1
	}

	// ── Discord transport ─────────────────────────────────────────────────────
	discordBot, err := discord.New(ctx, secrets.DiscordToken)
	if err != nil {
		slog.Error("failed to create discord bot", "err", err)
		return 1
	}
	messenger := discord.NewMessenger(discordBot.Session())

	// ── Pipeline and router ───────────────────────────────────────────────────
	pipeline := bot.NewPipeline(bot.PipelineConfig{
		Store:     store,
		Client:    client,
		Messenger: messenger,
		MaxTurns:  cfg.Session.MaxTurns,
		Metrics:   metrics,
	})
	router := bot.NewRouter(bot.RouterConfig{
		Pipeline:      pipeline,
		Messenger:     messenger,
		Prefix:        cfg.Bot.CommandPrefix,
		AllowFreeform: cfg.Bot.AllowFreeform,
		Metrics:       metrics,
	})
	discordBot.SetRouter(router)

	// ── Operational HTTP server ───────────────────────────────────────────────
	healthHandler := health.New(health.Config{
		Service:      "chatbot",
		Version:      version,
		SessionCount: store.Count,
	})
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           healthHandler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := discordBot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("discord bot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("operational endpoints listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := discordBot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
		return nil
	})

	slog.Info("relay ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
