// Package sweep реализует HTTP-обработчик ручного запуска выверки
// просроченных подписок. Доступен только администраторам; регулярный
// запуск делает отдельный воркер по расписанию.
package sweep

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
)

// Handler обрабатывает запросы ручного запуска выверки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выверки подписок.
type Service interface {
	SweepExpired(ctx context.Context) (int, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выверка просроченных подписок
// @Description Переводит всех пользователей с истёкшей подпиской на free. Только для администраторов.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Количество обработанных пользователей"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /subscriptions/sweep [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.sweep"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if role != "admin" {
		log.Warn("sweep rejected, admin role required", slog.String("role", role))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("admin role required"))
		return
	}

	count, err := h.service.SweepExpired(r.Context())
	if err != nil {
		log.Error("failed to sweep expired subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not sweep expired subscriptions"))
		return
	}

	log.Info("sweep finished", slog.Int("count", count))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"downgraded": count,
	}))
}
