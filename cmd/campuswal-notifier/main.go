// Command campuswal-notifier consumes fired reminders from AMQP and delivers
// them to Telegram.
package main

import (
	"context"
	"errors"
	"os"

	"campuswal/internal/amqp"
	"campuswal/internal/cli"
	"campuswal/internal/log"
	"campuswal/internal/notify"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentAMQP)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	delivery := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.Location())
		if err != nil {
			logger.Error("Failed to initialize Telegram bot", log.FieldError, err.Error())
			os.Exit(1)
		}
		delivery = append(delivery, tg)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, reminders are only logged")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting campuswal-notifier", "queue", cfg.AMQPQueue)
	err = client.ConsumeReminders(ctx, func(ctx context.Context, msg *amqp.ReminderMessage) error {
		return delivery.Notify(ctx, notify.FromMessage(msg))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Notifier stopped")
}
