// Package downgrade реализует HTTP-обработчик добровольного понижения тарифа.
package downgrade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Request — структура входных данных для понижения тарифа.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=basic premium"`
}

// Handler обрабатывает запросы понижения тарифа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики понижения тарифа.
type Service interface {
	Downgrade(ctx context.Context, userUID, targetPlan string) (*models.User, error)
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
// @Summary Понизить тариф подписки
// @Description Переводит пользователя на ступень ниже: spotlight → premium, платный тариф → basic. Смена вступает в силу сразу, срок действия подписки не меняется.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Целевой план"
// @Success 200 {object} map[string]any "Обновленное состояние подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже на этом тарифе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /subscriptions/downgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.downgrade"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.Downgrade(r.Context(), userUID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyOnPlan):
			log.Warn("user already on target plan", slog.String("plan", req.Plan))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("already on this plan"))
		case errors.Is(err, models.ErrInvalidPlan):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unsupported plan"))
		case errors.Is(err, models.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to downgrade", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not downgrade subscription"))
		}
		return
	}

	log.Info("subscription downgraded", slog.String("plan", req.Plan))
	// Ответ несёт эффективное состояние: для просроченной подписки клиент
	// сразу видит free, а не сохранённый тариф.
	eff := entitlement.ResolveEffective(user, time.Now().UTC())
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"entitlement": eff,
	}))
}
