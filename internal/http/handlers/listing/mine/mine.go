// Package mine реализует HTTP-обработчик списка объявлений текущего пользователя.
//
// В отличие от каталога, сюда попадают и проданные объявления.
package mine

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Handler обрабатывает запросы списка объявлений пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка объявлений пользователя.
type Service interface {
	ListMine(ctx context.Context, ownerUID string) ([]*models.Listing, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Мои объявления
// @Description Возвращает все объявления текущего пользователя, включая проданные.
// @Tags Listings
// @Produce  json
// @Success 200 {object} map[string]any "Список объявлений"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /listings/mine [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listing.mine"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ownerUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || ownerUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	listings, err := h.service.ListMine(r.Context(), ownerUID)
	if err != nil {
		log.Error("failed to list user listings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list listings"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"listings": models.NewListingViews(listings),
	}))
}
