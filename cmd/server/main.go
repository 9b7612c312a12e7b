// Wellness Companion - multilingual mental wellness chat server
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/wellness-companion/internal/api"
	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/config"
	"github.com/ashureev/wellness-companion/internal/convlog"
	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/language"
	"github.com/ashureev/wellness-companion/internal/llm"
	"github.com/ashureev/wellness-companion/internal/middleware"
	"github.com/ashureev/wellness-companion/internal/prompt"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/ashureev/wellness-companion/internal/store"
	"github.com/ashureev/wellness-companion/internal/voice"
	"github.com/ashureev/wellness-companion/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	table := prompt.DefaultTable()
	if cfg.Companion.PromptTablePath != "" {
		table, err = prompt.LoadTable(cfg.Companion.PromptTablePath)
		if err != nil {
			slog.Error("Failed to load prompt table", "error", err, "path", cfg.Companion.PromptTablePath)
			os.Exit(1)
		}
		slog.Info("Prompt table loaded", "path", cfg.Companion.PromptTablePath)
	}
	composer, err := prompt.NewComposer(table)
	if err != nil {
		slog.Error("Invalid prompt table", "error", err)
		os.Exit(1)
	}

	model, err := llm.NewClient(llm.Config{
		APIKey:          cfg.Model.APIKey,
		BaseURL:         cfg.Model.BaseURL,
		Model:           cfg.Model.Name,
		Temperature:     cfg.Model.Temperature,
		TranscribeModel: cfg.Model.TranscribeModel,
	})
	if err != nil {
		slog.Error("Failed to initialize model client", "error", err)
		os.Exit(1)
	}
	slog.Info("Model client initialized", "model", model.Model())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clips := voice.NewClipStore()
	var speaker companion.Speaker
	if cfg.Voice.Enabled {
		speaker = voice.NewSynthesizer(voice.Config{
			URL:     cfg.Voice.URL,
			Timeout: cfg.Voice.Timeout,
		}, clips)
		if err := voice.StartPruner(ctx, clips, cfg.Voice.ClipTTL, cfg.Voice.PruneSchedule); err != nil {
			slog.Error("Failed to start clip pruner", "error", err)
			os.Exit(1)
		}
		slog.Info("Voice enabled", "clip_ttl", cfg.Voice.ClipTTL, "schedule", cfg.Voice.PruneSchedule)
	}

	svc, err := companion.NewService(
		language.NewResolver(language.NewLinguaDetector(), logger),
		composer,
		model,
		companion.Options{
			ModelTimeout:     cfg.Model.Timeout,
			HistoryExchanges: cfg.Companion.HistoryExchanges,
			SideWorkers:      cfg.Companion.SideWorkers,
			Entries:          repo,
			Preferences:      repo,
			Speaker:          speaker,
			Logger:           logger,
		},
	)
	if err != nil {
		slog.Error("Failed to initialize companion service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	conversationLogger, err := convlog.New(convlog.Config{
		Enabled:         cfg.ConversationLog.Enabled,
		Dir:             cfg.ConversationLog.Dir,
		GlobalEnabled:   cfg.ConversationLog.GlobalEnabled,
		GlobalPath:      cfg.ConversationLog.GlobalPath,
		QueueSize:       cfg.ConversationLog.QueueSize,
		GlobalMaxSizeMB: cfg.ConversationLog.GlobalMaxSizeMB,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	limiter.StartEviction(ctx)

	origins := middleware.AllowedOrigins(cfg.FrontendURL, cfg.IsDevelopment())
	conns := api.NewConnManager()
	handler := api.NewHandler(api.Deps{
		Repo:            repo,
		Sessions:        session.NewRegistry(),
		Companion:       svc,
		Transcriber:     model,
		Clips:           clips,
		Limiter:         limiter,
		ConvLog:         conversationLogger,
		Conns:           conns,
		Defaults:        cfg.DefaultPreferences(),
		VoiceEnabled:    cfg.Voice.Enabled,
		ModelConfigured: true,
		AllowedOrigins:  origins,
		IsDev:           cfg.IsDevelopment(),
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(repo, cfg.DefaultPreferences(), cfg.IsDevelopment()))

	handler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	// Note: /ws/chat sockets outlive any write deadline, so WriteTimeout stays 0.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")
	conns.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
