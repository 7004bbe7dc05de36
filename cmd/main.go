package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/fitcoach-bridge/internal/ai"
	"github.com/Vovarama1992/fitcoach-bridge/internal/coach"
	"github.com/Vovarama1992/fitcoach-bridge/internal/config"
	"github.com/Vovarama1992/fitcoach-bridge/internal/storage"
	"github.com/Vovarama1992/fitcoach-bridge/internal/telegram"
)

func main() {
	root := &cobra.Command{
		Use:           "fitcoach",
		Short:         "Telegram fitness coach driven by a single language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot and the HTTP server",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatal("fitcoach", "err", err)
	}
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	db, err := storage.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return storage.Migrate(db, logger.WithPrefix("migrate"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(db, logger.WithPrefix("migrate")); err != nil {
		return err
	}

	// --- AI ---
	var aiClient ai.AI
	switch cfg.CompletionProvider {
	case config.ProviderGemini:
		aiClient, err = ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.WithPrefix("gemini"))
		if err != nil {
			return err
		}
	default:
		aiClient = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger.WithPrefix("openai"))
	}

	// --- Coach module wiring ---
	outbound := telegram.NewTelegramOutbound(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.SendRatePerSec, logger.WithPrefix("telegram"))
	coachRepo := coach.NewRepo(db)
	coachService := coach.NewService(coachRepo, aiClient, outbound, coach.Options{
		Logger:            logger.WithPrefix("coach"),
		CompletionTimeout: cfg.CompletionTimeout,
	})
	defer coachService.Wait()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Telegram-Bot-Api-Secret-Token"},
	}))

	if cfg.AdminToken != "" {
		coach.RegisterRoutes(r, coach.NewHandler(coachService), cfg.AdminToken)
	} else {
		logger.Info("ADMIN_TOKEN not set, admin routes disabled")
	}
	if cfg.TelegramMode == config.ModeWebhook {
		telegram.RegisterRoutes(r, telegram.NewHandler(coachService, cfg.TelegramWebhookSecret, logger.WithPrefix("webhook")))
	}

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	switch cfg.TelegramMode {
	case config.ModeWebhook:
		if cfg.TelegramWebhookURL != "" {
			if err := outbound.SetWebhook(ctx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
				return err
			}
			logger.Info("webhook registered", "url", cfg.TelegramWebhookURL)
		}
	default:
		if err := outbound.DeleteWebhook(ctx); err != nil {
			logger.Warn("deleteWebhook failed", "err", err)
		}
		poller := telegram.NewPoller(outbound, coachService, logger.WithPrefix("poller"))
		go func() {
			logger.Info("polling telegram for updates")
			if err := poller.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
