package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/trello-mimecast-notifier/api"
	"github.com/chxlky/trello-mimecast-notifier/integrations"
	"github.com/chxlky/trello-mimecast-notifier/internal/config"
	"github.com/chxlky/trello-mimecast-notifier/internal/models"
	"github.com/chxlky/trello-mimecast-notifier/internal/notify"
	"github.com/chxlky/trello-mimecast-notifier/internal/signer"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := logConfig.Build()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	trelloClient := integrations.NewTrelloClient(logger, cfg.Trello)
	mimecastClient := integrations.NewMimecastClient(
		logger,
		cfg.Mimecast.BaseURL,
		signer.New(cfg.Mimecast.AppID, cfg.Mimecast.SigningKey),
		cfg.Mimecast.Timeout,
	)
	onboardingClient := integrations.NewOnboardingClient(logger, cfg.Onboarding.URL, cfg.Onboarding.Timeout)

	dispatcher := notify.NewDispatcher(logger, trelloClient, mimecastClient, onboardingClient, notify.DispatcherConfig{
		Recipient:         models.EmailAddress{EmailAddress: cfg.Email.To, DisplayableName: cfg.Email.ToName},
		Sender:            models.EmailAddress{EmailAddress: cfg.Email.From, DisplayableName: cfg.Email.FromName},
		Location:          cfg.Email.Location,
		SendTimeout:       cfg.Mimecast.Timeout,
		OnboardingTimeout: cfg.Onboarding.Timeout,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{
		Notifier: dispatcher,
		Verifier: integrations.WebhookVerifier{
			AppSecret:   cfg.Trello.AppSecret,
			CallbackURL: cfg.Trello.CallbackURL,
		},
		Logger: logger,
	}
	apiHandler.Register(router)

	if !apiHandler.Verifier.Enabled() {
		zap.L().Warn("trello.app_secret is not set; webhook signatures will not be verified")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	zap.L().Info("Starting server", zap.String("port", cfg.Server.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	webhookIDs := make(map[string]string)
	if cfg.Trello.RegistersWebhooks() {
		// Trello probes the callback URL with HEAD before creating the webhook
		time.Sleep(250 * time.Millisecond)

		zap.L().Info("Registering Trello webhook for boards", zap.Strings("boardIDs", cfg.Trello.BoardIDs))
		for _, boardID := range cfg.Trello.BoardIDs {
			webhookID, err := trelloClient.RegisterWebhook(context.Background(), boardID)
			if err != nil {
				zap.L().Error("Failed to register webhook for board", zap.String("boardID", boardID), zap.Error(err))
				continue
			}
			webhookIDs[boardID] = webhookID
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		for boardID, webhookID := range webhookIDs {
			if err := trelloClient.DeleteWebhook(ctx, webhookID); err != nil {
				zap.L().Error("Error deleting webhook for board", zap.String("boardID", boardID), zap.Error(err))
			} else {
				zap.L().Info("Successfully deleted webhook for board", zap.String("boardID", boardID))
			}
		}
		close(done)
	}

	go func() {
		sig := <-sigCh
		once.Do(func() {
			cleanup(sig.String())
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
}
