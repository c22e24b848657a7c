package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/config"
	appHTTP "github.com/cmlabs-hris/linebot-hrm/internal/handler/http"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/jwt"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/storage"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/watermark"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
	linebotService "github.com/cmlabs-hris/linebot-hrm/internal/service/linebot"
	registrationService "github.com/cmlabs-hris/linebot-hrm/internal/service/registration"
	"github.com/go-chi/jwtauth/v5"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	loc := cfg.Location()

	registrationRepo, closeStore, err := repository.OpenRegistrations(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open employee directory", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			slog.Error("Failed to initialize local storage", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unsupported storage type", "type", cfg.Storage.Type)
		os.Exit(1)
	}

	fileService := file.NewFileService(fileStorage, watermark.NewAnnotator(cfg.Watermark.FontPaths), registrationRepo, loc)
	messenger := line.NewClient(cfg.LINE.APIBaseURL, cfg.LINE.ChannelAccessToken, cfg.LINE.Timeout)

	registrationSvc := registrationService.NewRegistrationService(registrationRepo, fileService)
	linebotSvc := linebotService.NewLinebotService(registrationRepo, messenger, loc)

	var adminAuth *jwtauth.JWTAuth
	if cfg.Admin.JWTSecret != "" {
		adminAuth = jwt.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL).JWTAuth()
	} else {
		slog.Warn("ADMIN_JWT_SECRET is not set, registration management routes are open")
	}
	if cfg.LINE.ChannelSecret == "" {
		slog.Warn("LINE_CHANNEL_SECRET is not set, webhook signatures are not checked")
	}

	router := appHTTP.NewRegistrationRouter(
		appHTTP.RouterOptions{
			App:            "linebot-registration",
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
		adminAuth,
		appHTTP.NewRegistrationHandler(registrationSvc, cfg.Store.Driver, cfg.App.StaticDir),
		appHTTP.NewWebhookHandler(linebotSvc, cfg.LINE.ChannelSecret),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.RegistrationPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	slog.Info("Registration server running", "addr", server.Addr, "store", cfg.Store.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
