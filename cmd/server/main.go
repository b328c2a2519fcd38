package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"reviewbase/internal/app"
	"reviewbase/internal/config"
	"reviewbase/internal/ratelimit"
	"reviewbase/internal/server"
	"reviewbase/internal/util"
	"reviewbase/pkg/mail"
	"reviewbase/pkg/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	confirmationTTL, err := config.ParseTTL(cfg.ConfirmationTTL)
	if err != nil {
		return err
	}
	confirmations, err := store.NewRedisConfirmationStore(cfg.RedisAddr, cfg.RedisPassword, confirmationTTL)
	if err != nil {
		return err
	}

	tokenTTL, err := config.ParseTTL(cfg.TokenTTL)
	if err != nil {
		return err
	}
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, tokenTTL, store.JWTOptions{})
	if err != nil {
		return err
	}

	var mailer mail.Mailer
	var mailerCloser interface{ Close() error }
	switch cfg.MailerDriver {
	case "amqp":
		amqpMailer, err := mail.NewAMQPMailer(cfg.AMQPURL, cfg.MailQueue)
		if err != nil {
			return err
		}
		mailer = amqpMailer
		mailerCloser = amqpMailer
	default:
		mailer = mail.LogMailer{}
	}

	a := app.New(app.Config{
		Store:         st,
		Confirmations: confirmations,
		Sessions:      sessions,
		Mailer:        mailer,
	})

	srvCfg := server.Config{App: a}
	if cfg.SignupRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "", cfg.SignupRateLimitPerMinute, time.Minute)
		if err != nil {
			return err
		}
		srvCfg.SignupLimiter = limiter
	}
	if cfg.TokenRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "", cfg.TokenRateLimitPerMinute, time.Minute)
		if err != nil {
			return err
		}
		srvCfg.TokenLimiter = limiter
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(srvCfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr, "mailer", cfg.MailerDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if mailerCloser != nil {
			if err := mailerCloser.Close(); err != nil {
				logger.Warn("close mailer", "error", err)
			}
		}
		return nil
	})
	return g.Wait()
}
