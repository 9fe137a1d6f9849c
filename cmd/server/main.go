package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"roomstyler/internal/app"
	"roomstyler/internal/config"
	"roomstyler/internal/server"
	"roomstyler/internal/util"
	"roomstyler/pkg/ai"
	"roomstyler/pkg/storage"
	"roomstyler/pkg/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init database", "err", err)
	}

	objects, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		util.Fatal("failed to init object store", "err", err)
	}

	adapter, err := buildAIAdapter(cfg)
	if err != nil {
		util.Fatal("failed to init ai providers", "err", err)
	}

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		util.Fatal("failed to init session store", "err", err)
	}

	appCore, err := app.New(app.Config{
		Store:              db,
		Sessions:           sessions,
		AI:                 adapter,
		Objects:            objects,
		Environment:        cfg.Environment,
		MaxRecommendations: cfg.MaxRecommendations,
		PresignExpiry:      cfg.PresignExpiryDuration(),
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                         appCore,
		RedisAddr:                   cfg.RedisAddr,
		RedisPassword:               cfg.RedisPassword,
		SignupRateLimitPerMinute:    cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:     cfg.LoginRateLimitPerMinute,
		RecommendRateLimitPerMinute: cfg.RecommendRateLimitPerMinute,
		GenerateRateLimitPerMinute:  cfg.GenerateRateLimitPerMinute,
		MaxUploadBytes:              cfg.MaxUploadBytes(),
		AllowedExtensions:           cfg.AllowedExtensions,
		TrustedProxies:              cfg.TrustedProxies,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		util.Fatal("failed to listen", "addr", addr, "err", err)
	}
	listener = netutil.LimitListener(listener, cfg.MaxConns)

	srv := &http.Server{
		Handler:      util.WithRequestLog("roomstyler", httpServer.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr, "env", cfg.Environment)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		util.Fatal("server error", "err", err)
	}
}

func buildAIAdapter(cfg config.FileConfig) (*ai.Adapter, error) {
	timeout := cfg.AITimeoutDuration()
	providers := make([]ai.Provider, 0, 2)
	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIImageModel, timeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, openAI)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, gemini)
	}
	return ai.NewAdapter(cfg.AIProvider, providers...)
}

func buildSessionStore(cfg config.FileConfig) (store.SessionStore, error) {
	switch cfg.SessionBackend {
	case "jwt":
		revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		return store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTLDuration(), revoker, store.JWTOptions{})
	default:
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTLDuration()), nil
	}
}
