// Package testconfirm реализует HTTP-обработчик ручного подтверждения
// платежа без обращения к провайдеру. Используется в тестовых стендах
// и доступен только администраторам.
package testconfirm

import (
	"context"
	"encoding/json"
	"errors"
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

// Request — структура входных данных ручного подтверждения платежа.
type Request struct {
	EventID  string `json:"event_id" validate:"required"`
	UserUID  string `json:"user_uid" validate:"required,uuid"`
	Amount   int    `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// Service описывает интерфейс применения подтверждённого платежа.
type Service interface {
	ApplyPayment(ctx context.Context, eventID, userUID string, amount int, currency string) (*models.User, error)
}

// Handler обрабатывает запросы ручного подтверждения платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
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
// @Summary Подтвердить платёж вручную
// @Description Применяет платёж без провайдера, с той же идемпотентностью по event_id. Только для администраторов.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные платежа"
// @Success 200 {object} map[string]any "Обновленное состояние подписки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или сумма"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Событие уже обработано"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /payments/test-confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.testconfirm"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if role != "admin" {
		log.Warn("test confirm rejected, admin role required", slog.String("role", role))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("admin role required"))
		return
	}

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

	user, err := h.service.ApplyPayment(r.Context(), req.EventID, req.UserUID, req.Amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPaymentAlreadyProcessed):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment event already processed"))
		case errors.Is(err, models.ErrInvalidPaymentAmount):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("amount does not match any plan"))
		case errors.Is(err, models.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to apply payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not apply payment"))
		}
		return
	}

	log.Info("payment confirmed manually",
		slog.String("event_id", req.EventID),
		slog.String("user_uid", req.UserUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"tier":       user.SubscriptionTier,
		"credits":    user.PremiumCreditsRemaining,
		"expires_at": user.SubscriptionExpiresAt,
	}))
}
