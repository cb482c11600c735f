package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"smartdecor/config"
	"smartdecor/internal/database"
	"smartdecor/internal/logger"
	"smartdecor/internal/metrics"
	"smartdecor/internal/middleware"
	"smartdecor/internal/router"
	"smartdecor/internal/service"
	"smartdecor/internal/ws"
	"smartdecor/pkg/cloudinary"
	"smartdecor/pkg/mailer"
	"smartdecor/pkg/payment"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(&cfg.Database, log, logger.GormLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	m := metrics.New()
	hub := ws.NewHub()
	hub.OnCountChange(func(n int) { m.WSClients.Set(float64(n)) })

	engine := router.Setup(router.Deps{
		Config:   cfg,
		DB:       db,
		Log:      log,
		Metrics:  m,
		Provider: newProvider(cfg, log),
		Mailer:   newMailer(cfg, log),
		Pusher:   newPusher(ctx, cfg, log),
		Media:    newMedia(cfg, log),
		Limiter:  newLimiter(ctx, cfg, log),
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

func newProvider(cfg *config.Config, log *zap.Logger) payment.Provider {
	if !cfg.Mpesa.Enabled() {
		log.Warn("mpesa credentials missing; using stub provider")
		return payment.NewStubProvider(log)
	}
	return payment.NewDarajaProvider(payment.DarajaOptions{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		PassKey:        cfg.Mpesa.PassKey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	}, log)
}

func newMailer(cfg *config.Config, log *zap.Logger) mailer.Mailer {
	if cfg.SMTP.Host == "" {
		log.Warn("smtp not configured; emails are logged only")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
}

func newPusher(ctx context.Context, cfg *config.Config, log *zap.Logger) service.Pusher {
	fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, log)
	if fcm == nil {
		log.Info("push notifications disabled")
		return nil
	}
	log.Info("push notifications enabled")
	return fcm
}

func newMedia(cfg *config.Config, log *zap.Logger) cloudinary.Client {
	if cfg.Cloudinary.CloudName == "" {
		log.Info("cloudinary not configured; media uploads disabled")
		return nil
	}
	client, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		log.Error("cloudinary init failed; media uploads disabled", zap.Error(err))
		return nil
	}
	return client
}

func newLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) middleware.RateLimiter {
	if cfg.RateLimit.Requests <= 0 {
		return nil
	}
	if cfg.Redis.Addr == "" {
		return middleware.NewInMemoryRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable; rate limiting in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return middleware.NewInMemoryRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	log.Info("rate limiting via redis", zap.String("addr", cfg.Redis.Addr))
	return middleware.NewRedisRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
}
