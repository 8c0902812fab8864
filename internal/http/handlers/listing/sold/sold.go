// Package sold реализует HTTP-обработчик фиксации продажи объявления.
//
// Переход необратим: объявление уходит из каталога, продвижение
// снимается, потраченный кредит не возвращается.
package sold

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Handler обрабатывает запросы фиксации продажи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики фиксации продажи.
type Service interface {
	MarkSold(ctx context.Context, ownerUID, listingID string) (*models.Listing, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Пометить объявление проданным
// @Description Необратимо помечает объявление проданным и снимает продвижение. Кредит не возвращается.
// @Tags Listings
// @Produce  json
// @Param id path string true "ID объявления"
// @Success 200 {object} map[string]any "Проданное объявление"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Объявление принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 409 {object} response.ErrorResponse "Объявление уже продано"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /listings/{id}/sold [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listing.sold"

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

	id := chi.URLParam(r, "id")

	listing, err := h.service.MarkSold(r.Context(), ownerUID, id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrListingAlreadySold):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("listing is already sold"))
		case errors.Is(err, models.ErrListingNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("listing not found"))
		case errors.Is(err, models.ErrForbidden):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("listing belongs to another user"))
		default:
			log.Error("failed to mark listing as sold", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not mark listing as sold"))
		}
		return
	}

	log.Info("listing marked as sold", slog.String("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"listing": models.NewListingView(listing),
	}))
}
