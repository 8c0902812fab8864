// Package create реализует HTTP-обработчик создания объявлений.
//
// Handler принимает JSON-запрос с данными объявления, валидирует их,
// извлекает UID продавца из контекста и возвращает созданное объявление.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Handler управляет HTTP-запросами на создание объявлений.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания объявления.
type Service interface {
	Create(ctx context.Context, ownerUID string, req models.DummyListing) (*models.Listing, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать объявление
// @Description Создает новое объявление текущего пользователя со статусом active.
// @Tags Listings
// @Accept  json
// @Produce  json
// @Param request body models.DummyListing true "Данные объявления"
// @Success 200 {object} map[string]any "Созданное объявление"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании объявления"
// @Security BearerAuth
// @Router /listings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listing.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyListing
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	ownerUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || ownerUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	listing, err := h.service.Create(r.Context(), ownerUID, req)
	if err != nil {
		log.Error("failed to create listing", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create listing"))
		return
	}

	log.Info("listing created", slog.String("id", listing.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"listing": models.NewListingView(listing),
	}))
}
