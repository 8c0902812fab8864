// Package checkout реализует HTTP-обработчик создания checkout-сессии
// для покупки премиум-тарифа.
package checkout

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/paymentprovider"
)

// Request — структура входных данных для создания checkout-сессии.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=premium spotlight"`
}

// Handler обрабатывает запросы создания checkout-сессии.
type Handler struct {
	log      *slog.Logger
	provider Provider
	validate *validator.Validate
}

// Provider описывает интерфейс платёжного провайдера.
type Provider interface {
	CreateCheckoutSession(userUID string, amount int, currency, planName string) (*paymentprovider.CheckoutSession, error)
}

// New создает новый Handler с переданными логгером и провайдером.
func New(log *slog.Logger, provider Provider) *Handler {
	return &Handler{
		log:      log,
		provider: provider,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать checkout-сессию
// @Description Создает платёжную сессию на стоимость выбранного тарифа и возвращает URL для оплаты.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф для покупки"
// @Success 200 {object} map[string]any "Сессия создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Security BearerAuth
// @Router /payments/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"

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

	amount := entitlement.PremiumThreshold
	planName := "Premium plan"
	if req.Plan == "spotlight" {
		amount = entitlement.SpotlightThreshold
		planName = "Spotlight plan"
	}

	sess, err := h.provider.CreateCheckoutSession(userUID, amount, "usd", planName)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	log.Info("checkout session created",
		slog.String("session_id", sess.SessionID),
		slog.String("plan", req.Plan))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session_id": sess.SessionID,
		"url":        sess.URL,
	}))
}
