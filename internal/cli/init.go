// Package cli holds the start-up steps shared by the campuswal commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"campuswal/internal/amqp"
	"campuswal/internal/backend"
	"campuswal/internal/config"
	"campuswal/internal/log"
	"campuswal/internal/notify"
)

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := config.ParseLogLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it is
// invalid.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// OpenGateway selects and initializes the storage backend.
func OpenGateway(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *log.Logger) (*backend.Gateway, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	gw := backend.NewGateway(backend.NewFactory(logger.Logger), bcfg,
		backend.WithClock(clock),
		backend.WithLocation(cfg.Location()),
		backend.WithLogger(logger))
	if err := gw.Init(ctx); err != nil {
		return nil, err
	}
	info, _ := gw.StorageInfo(ctx)
	logger.InfoContext(ctx, "Storage ready",
		log.FieldBackend, info.Type, "location", info.Location, log.FieldOperation, log.OpStartup)
	return gw, nil
}

// ExternalNotifiers connects the optional reminder channels configured in
// cfg. The returned close function releases them.
func ExternalNotifiers(cfg *config.Config, logger *log.Logger) (notify.Multi, func(), error) {
	var (
		out     notify.Multi
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect amqp: %w", err)
		}
		closers = append(closers, client.Close)
		out = append(out, notify.NewAMQPNotifier(client))
		logger.Info("Reminders published to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.Location())
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		out = append(out, tg)
		logger.Info("Reminders sent to Telegram", "chat_id", cfg.TelegramChatID)
	}
	return out, closeAll, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, cancel
}
