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
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/cron"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/hrapi"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/line"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/sse"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/storage"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/watermark"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository"
	"github.com/cmlabs-hris/linebot-hrm/internal/repository/jsonfile"
	checkinService "github.com/cmlabs-hris/linebot-hrm/internal/service/checkin"
	"github.com/cmlabs-hris/linebot-hrm/internal/service/file"
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

	checkinRepo, err := jsonfile.NewCheckinRepository(cfg.CheckinLog.File)
	if err != nil {
		slog.Error("Failed to open attendance log", "error", err)
		os.Exit(1)
	}

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
	directory := hrapi.NewDirectory(cfg.HR.VerificationEnabled, cfg.HR.SearchURL, cfg.HR.SearchTimeout)
	timeRecords := hrapi.NewTimeRecords(cfg.HR.TimeRecordURL, cfg.HR.TimeRecordTimeout)
	messenger := line.NewClient(cfg.LINE.APIBaseURL, cfg.LINE.ChannelAccessToken, cfg.LINE.Timeout)

	checkinSvc := checkinService.NewCheckinService(
		checkinRepo,
		registrationRepo,
		directory,
		timeRecords,
		messenger,
		fileService,
		sse.NewHub(),
		loc,
	)

	scheduler := cron.NewScheduler()
	cron.NewCheckinJobs(registrationRepo, loc).RegisterJobs(scheduler, cfg.Cron.SweepInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewCheckinRouter(
		appHTTP.RouterOptions{
			App:            "linebot-checkin",
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
		appHTTP.NewCheckinHandler(checkinSvc, fileService, loc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.CheckinPort),
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

	slog.Info("Check-in server running",
		"addr", server.Addr,
		"upload_dir", fileService.Dir(),
		"data_file", cfg.CheckinLog.File,
		"hr_verification", cfg.HR.VerificationEnabled,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
