// Package webhook реализует HTTP-обработчик платёжных событий Stripe.
//
// Подпись события проверяется до какой-либо обработки. Повторная доставка
// уже обработанного события подтверждается со статусом 200, чтобы провайдер
// не ретраил её бесконечно; состояние пользователя при этом не меняется.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v78"

	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
	"github.com/magabrotheeeer/car-marketplace/internal/paymentprovider"
)

const maxBodyBytes = 65536

// Provider описывает интерфейс проверки подписи платёжного события.
type Provider interface {
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// Service описывает интерфейс применения подтверждённого платежа.
type Service interface {
	ApplyPayment(ctx context.Context, eventID, userUID string, amount int, currency string) (*models.User, error)
}

// Handler обрабатывает webhook-события платёжного провайдера.
type Handler struct {
	log      *slog.Logger
	provider Provider
	service  Service
}

// New создает новый Handler с переданными логгером, провайдером и сервисом.
func New(log *slog.Logger, provider Provider, service Service) *Handler {
	return &Handler{
		log:      log,
		provider: provider,
		service:  service,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Принимает события Stripe, проверяет подпись и применяет подтверждённые платежи.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]any "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Невалидная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Ошибка применения платежа"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid body"))
		return
	}

	event, err := h.provider.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Error("invalid webhook signature", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	conf, err := paymentprovider.ExtractConfirmation(event)
	if err != nil {
		log.Error("failed to extract payment confirmation", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	}
	if conf == nil {
		// Событие другого типа: подтверждаем и игнорируем.
		log.Info("skipping webhook event", slog.String("type", string(event.Type)))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"received": true}))
		return
	}

	_, err = h.service.ApplyPayment(r.Context(), conf.EventID, conf.UserUID, conf.Amount, conf.Currency)
	if err != nil {
		if errors.Is(err, models.ErrPaymentAlreadyProcessed) {
			log.Warn("duplicate payment event acknowledged", slog.String("event_id", conf.EventID))
			render.JSON(w, r, response.StatusOKWithData(map[string]any{"received": true}))
			return
		}
		log.Error("failed to apply payment", sl.Err(err), slog.String("event_id", conf.EventID))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply payment"))
		return
	}

	log.Info("payment applied",
		slog.String("event_id", conf.EventID),
		slog.String("user_uid", conf.UserUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"received": true}))
}
