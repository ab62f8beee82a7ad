package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/crypto"
	"github.com/ulya2402/Wisedebot/internal/handlers"
	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/middleware"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
	"github.com/ulya2402/Wisedebot/internal/session"
	"github.com/ulya2402/Wisedebot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Wisedebot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(&cfg.Storage, &cfg.I18n, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	sessions, err := session.NewManager(&cfg.Session, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize session store")
	}

	cipher, err := crypto.NewCipher(cfg.Crypto.EncryptionKey, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize cipher")
	}

	aiClient := ai.NewClient(&cfg.Groq, log)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	metrics := middleware.NewMetrics()

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	handler := handlers.NewHandler(
		bot,
		cfg,
		store,
		sessions,
		aiClient,
		cipher,
		localizer,
		rateLimiter,
		metrics,
		log,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for update := range updates {
			if update.CallbackQuery != nil {
				handler.HandleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			if update.Message.IsCommand() {
				handler.HandleCommand(ctx, update.Message)
				continue
			}
			handler.HandleMessage(ctx, update.Message)
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	bot.StopReceivingUpdates()
	cancel()

	// Give in-flight handlers time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}
