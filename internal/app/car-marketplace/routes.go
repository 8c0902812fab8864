// Package carmarketplace предоставляет маршруты для основного приложения.
package carmarketplace

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/health"
	listingcreate "github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/create"
	listinglist "github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/list"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/mine"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/promote"
	listingread "github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/read"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/remove"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/sold"
	listingupdate "github.com/magabrotheeeer/car-marketplace/internal/http/handlers/listing/update"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/payment/checkout"
	paymentlist "github.com/magabrotheeeer/car-marketplace/internal/http/handlers/payment/list"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/payment/testconfirm"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/subscription/downgrade"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/subscription/effective"
	"github.com/magabrotheeeer/car-marketplace/internal/http/handlers/subscription/sweep"
	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/car-marketplace/internal/services/auth"
	listingservice "github.com/magabrotheeeer/car-marketplace/internal/services/listing"
	subscriptionservice "github.com/magabrotheeeer/car-marketplace/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	subscriptionService *subscriptionservice.SubscriptionService,
	listingService *listingservice.ListingService,
	providerClient *paymentprovider.Client,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Каталог объявлений доступен без аутентификации
		r.Get("/listings", listinglist.New(logger, listingService).ServeHTTP)
		r.Get("/listings/{id}", listingread.New(logger, listingService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/me", me.New(logger, authService).ServeHTTP)

			r.Get("/subscriptions/effective", effective.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/downgrade", downgrade.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/sweep", sweep.New(logger, subscriptionService).ServeHTTP)

			r.Post("/payments/checkout", checkout.New(logger, providerClient).ServeHTTP)
			r.Post("/payments/test-confirm", testconfirm.New(logger, subscriptionService).ServeHTTP)
			r.Get("/payments/list", paymentlist.New(logger, subscriptionService).ServeHTTP)

			r.Post("/listings", listingcreate.New(logger, listingService).ServeHTTP)
			r.Get("/listings/mine", mine.New(logger, listingService).ServeHTTP)
			r.Put("/listings/{id}", listingupdate.New(logger, listingService).ServeHTTP)
			r.Delete("/listings/{id}", remove.New(logger, listingService).ServeHTTP)
			r.Post("/listings/{id}/promote", promote.New(logger, listingService).ServeHTTP)
			r.Post("/listings/{id}/sold", sold.New(logger, listingService).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", webhook.New(logger, providerClient, subscriptionService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
