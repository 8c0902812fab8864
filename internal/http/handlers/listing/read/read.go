// Package read реализует HTTP-обработчик получения объявления по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Handler обрабатывает запросы на получение объявления по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения объявления.
type Service interface {
	Read(ctx context.Context, id string) (*models.Listing, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить объявление
// @Description Возвращает объявление с контактами продавца. Заголовок проданного объявления содержит маркер SOLD.
// @Tags Listings
// @Produce  json
// @Param id path string true "ID объявления"
// @Success 200 {object} map[string]any "Объявление"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /listings/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listing.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	listing, err := h.service.Read(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrListingNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("listing not found"))
			return
		}
		log.Error("failed to read listing", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read listing"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"listing": models.NewListingView(listing),
	}))
}
