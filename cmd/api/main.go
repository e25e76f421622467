package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"proposaldesk/internal/app"
	"proposaldesk/internal/config"
	"proposaldesk/internal/email"
	"proposaldesk/internal/export"
	"proposaldesk/internal/logging"
	"proposaldesk/internal/proposal"
	"proposaldesk/internal/search"
	"proposaldesk/internal/session"
	"proposaldesk/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "proposaldesk-api")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	docs, closeStore, err := store.Connect(ctx, cfg.DatabaseURL, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("document store unavailable", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	reader := proposal.NewReader(docs)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewStoreSearcher(reader), logger)

	var archive export.Archive
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioArchive, err := export.NewMinioArchive(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Warn("export archive disabled", zap.Error(err))
		} else {
			archive = minioArchive
			logger.Info("archiving exports to minio", zap.String("bucket", cfg.MinioBucket))
		}
	}
	exportService := export.NewService(reader, archive, logger)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("using redis for session storage")
	} else {
		sessions = session.NewMemoryStore()
		logger.Info("using in-process session storage")
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: "Proposal Desk",
		AppURL:   cfg.AppURL,
	})
	if !mailer.IsConfigured() {
		logger.Info("SMTP not configured; review notifications disabled")
	}

	service := app.New(cfg, app.Deps{
		Docs:     docs,
		Sessions: sessions,
		Search:   searchService,
		Exports:  exportService,
		Mailer:   mailer,
		Logger:   logger,
	})
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error (will retry on next restart)", zap.Error(err))
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("proposaldesk api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
