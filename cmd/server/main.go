package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/config"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/handler"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/router"
	"github.com/healthportal/internal/session"
	"github.com/healthportal/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)
	if cfg.UsesInsecureSecret() {
		logger.Warn("SESSION_SECRET is not set, using the development default")
	}
	flush, err := logging.InitSentry(cfg.SentryDSN, cfg.Env)
	if err != nil {
		logger.WithError(err).Warn("sentry disabled")
	} else {
		defer flush()
	}

	// 初始化数据库
	gdb, err := db.Open(db.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.WithError(err).Error("failed to close database")
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.UploadDriver,
		Root:        cfg.UploadDir,
		URLPrefix:   cfg.UploadURLPath,
		S3Bucket:    cfg.S3Bucket,
		S3Region:    cfg.S3Region,
		S3Endpoint:  cfg.S3Endpoint,
		S3PathStyle: cfg.S3PathStyle,
	})
	if err != nil {
		log.Fatalf("failed to open upload storage: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sessions, err := session.NewManager(cfg.SessionSecret, session.DefaultTTL, cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to create session manager: %v", err)
	}

	api := handler.NewAPI(handler.Options{
		DB:              gdb,
		Sessions:        sessions,
		Store:           store,
		Logger:          logger,
		Metrics:         m,
		UploadMaxBytes:  cfg.UploadMaxBytes,
		DefaultLanguage: cfg.DefaultLanguage,
		SecureCookies:   cfg.IsProduction(),

		LoginAttemptsPerMinute: cfg.LoginAttemptsPerMinute,
	})

	gin.SetMode(cfg.GinMode)
	routerOpts := router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.IsProduction(),
		TemplateGlob:  cfg.TemplateGlob,
		StaticDir:     cfg.StaticDir,
		UploadURLPath: cfg.UploadURLPath,
		Metrics:       m.Handler(),
		Logger:        logger,

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	// S3 直接返回对象 URL，本地目录才需要由服务自己提供
	if store.Driver() == storage.DriverFilesystem {
		routerOpts.UploadDir = cfg.UploadDir
	}
	r := router.SetupRouter(api, routerOpts)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("health portal listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}
