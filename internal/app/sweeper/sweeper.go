// Package sweeper содержит фоновое приложение выверки подписок:
// по расписанию понижает пользователей с истёкшим оплаченным тарифом
// и публикует уведомления об истечении в RabbitMQ.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/car-marketplace/internal/config"
	"github.com/magabrotheeeer/car-marketplace/internal/rabbitmq"
	subscriptionservice "github.com/magabrotheeeer/car-marketplace/internal/services/subscription"
	"github.com/magabrotheeeer/car-marketplace/internal/storage/repository"
)

// App представляет приложение выверки подписок.
type App struct {
	subscriptionService *subscriptionservice.SubscriptionService
	cronSpec            string
	conn                *amqp.Connection
	ch                  *amqp.Channel
	db                  *repository.Storage
	logger              *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения выверки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	notifier := rabbitmq.NewExpiredNotifier(ch)
	subscriptionService := subscriptionservice.NewSubscriptionService(db, notifier, logger)

	return &App{
		subscriptionService: subscriptionService,
		cronSpec:            cfg.Sweeper.CronSpec,
		conn:                conn,
		ch:                  ch,
		db:                  db,
		logger:              logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает планировщик выверки и блокируется до отмены контекста.
// Первая выверка выполняется сразу при старте, далее по расписанию.
func (a *App) Run(ctx context.Context) error {
	a.sweep(ctx)

	c := cron.New()
	if _, err := c.AddFunc(a.cronSpec, func() {
		a.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	c.Start()

	<-ctx.Done()

	a.logger.Info("shutting down sweeper")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	closeResources(a.ch, a.conn, a.logger)

	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}

	return nil
}

func (a *App) sweep(ctx context.Context) {
	count, err := a.subscriptionService.SweepExpired(ctx)
	if err != nil {
		a.logger.Error("sweep failed", slog.Any("err", err))
		return
	}
	a.logger.Info("sweep completed", slog.Int("downgraded", count))
}
