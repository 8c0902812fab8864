// Package carmarketplace собирает основное HTTP-приложение маркетплейса:
// хранилище, кэш, сервисы и маршруты.
package carmarketplace

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/car-marketplace/internal/cache"
	"github.com/magabrotheeeer/car-marketplace/internal/config"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/jwt"
	"github.com/magabrotheeeer/car-marketplace/internal/migrations"
	"github.com/magabrotheeeer/car-marketplace/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/car-marketplace/internal/services/auth"
	listingservice "github.com/magabrotheeeer/car-marketplace/internal/services/listing"
	subscriptionservice "github.com/magabrotheeeer/car-marketplace/internal/services/subscription"
	"github.com/magabrotheeeer/car-marketplace/internal/storage/repository"
)

// App представляет основное приложение маркетплейса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New инициализирует хранилище, кэш, сервисы и HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewAuthService(db, jwtMaker)
	// В API-приложении уведомления об истечении не публикуются,
	// этим занимается sweeper.
	subscriptionService := subscriptionservice.NewSubscriptionService(db, nil, logger)
	listingService := listingservice.NewListingService(db, cacheRedis, logger)
	providerClient := paymentprovider.NewClient(cfg.Stripe)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, authService, subscriptionService, listingService, providerClient)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", closeErr))
		}
		return err
	}
}
