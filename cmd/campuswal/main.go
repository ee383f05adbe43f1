package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"campuswal/internal/cli"
	apphttp "campuswal/internal/http"
	"campuswal/internal/log"
	"campuswal/internal/notify"
	"campuswal/internal/services"
	"campuswal/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	clock := clockwork.NewRealClock()
	gw, err := cli.OpenGateway(ctx, cfg, clock, logger)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer gw.Teardown()

	expenses := services.NewExpenseService(gw, logger)
	todos := services.NewTodoService(gw, cfg.TodoRetention, logger)

	if n, err := todos.Sweep(ctx); err != nil {
		logger.Warn("Startup sweep failed", log.FieldError, err.Error())
	} else if n > 0 {
		logger.Info("Startup sweep removed completed todos", log.FieldCount, n)
	}

	external, closeExternal, err := cli.ExternalNotifiers(cfg, logger)
	if err != nil {
		logger.Error("Failed to set up reminder delivery", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer closeExternal()

	// The hub needs the worker for its connect hook and the worker needs the
	// hub as a notifier, so the waker is bound after both exist.
	var reminders *worker.ReminderWorker
	hub := apphttp.NewHub(expenses, wakeFunc(func() { reminders.Wake() }), clock, logger)

	notifiers := append(notify.Multi{notify.NewLogNotifier(logger), hub}, external...)
	processor := services.NewReminderProcessor(gw, notifiers, logger)
	reminders = worker.NewReminderWorker(processor, clock, cfg.ReminderInterval, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:  expenses,
		Todos:     todos,
		Data:      gw,
		Reminders: reminders,
		Hub:       hub,
		Logger:    logger,
		Clock:     clock,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reminders.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting campuswal server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

type wakeFunc func()

func (f wakeFunc) Wake() { f() }
