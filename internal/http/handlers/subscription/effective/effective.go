// Package effective реализует HTTP-обработчик чтения эффективного
// состояния подписки текущего пользователя.
//
// Возвращаемое состояние вычисляется на момент запроса: просроченная
// платная подписка отдаётся как неактивный free, даже если хранимая
// запись ещё не приведена фоновой выверкой.
package effective

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
)

// Handler обрабатывает запросы эффективного состояния подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения подписочного состояния.
type Service interface {
	GetEffective(ctx context.Context, userUID string) (*entitlement.Effective, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Эффективное состояние подписки
// @Description Возвращает тариф, остаток кредитов и срок действия подписки на момент запроса.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Состояние подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /subscriptions/effective [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.effective"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	eff, err := h.service.GetEffective(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve subscription state", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve subscription state"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"entitlement": eff,
	}))
}
