// Package list реализует HTTP-обработчик каталога объявлений
// с фильтрами, поиском, сортировкой и пагинацией.
//
// Проданные объявления по умолчанию скрыты из выдачи.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/car-marketplace/internal/http/response"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler обрабатывает запросы каталога объявлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики поиска по каталогу.
type Service interface {
	List(ctx context.Context, filter models.ListingFilter) ([]*models.Listing, int, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func parseFilter(r *http.Request) models.ListingFilter {
	q := r.URL.Query()
	filter := models.ListingFilter{
		Sort:   q.Get("sort"),
		Limit:  defaultLimit,
		Offset: 0,
	}

	if v := q.Get("make"); v != "" {
		filter.Make = &v
	}
	if v := q.Get("model"); v != "" {
		filter.Model = &v
	}
	if v := q.Get("q"); v != "" {
		filter.Query = &v
	}
	if v, err := strconv.Atoi(q.Get("year_min")); err == nil {
		filter.YearMin = &v
	}
	if v, err := strconv.Atoi(q.Get("year_max")); err == nil {
		filter.YearMax = &v
	}
	if v, err := strconv.Atoi(q.Get("price_min")); err == nil {
		filter.PriceMin = &v
	}
	if v, err := strconv.Atoi(q.Get("price_max")); err == nil {
		filter.PriceMax = &v
	}
	if v, err := strconv.ParseBool(q.Get("featured")); err == nil {
		filter.Featured = &v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = min(v, maxLimit)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	return filter
}

// ServeHTTP godoc
// @Summary Каталог объявлений
// @Description Возвращает страницу активных объявлений по фильтрам: марка, модель, год, цена, поиск подстроки, featured.
// @Tags Listings
// @Produce  json
// @Param make query string false "Марка автомобиля"
// @Param model query string false "Модель автомобиля"
// @Param year_min query int false "Минимальный год выпуска"
// @Param year_max query int false "Максимальный год выпуска"
// @Param price_min query int false "Минимальная цена"
// @Param price_max query int false "Максимальная цена"
// @Param q query string false "Поиск подстроки"
// @Param featured query bool false "Только продвинутые объявления"
// @Param sort query string false "Сортировка: newest, price_asc, price_desc, mileage_asc"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Страница объявлений и общее количество"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /listings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listing.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter := parseFilter(r)

	listings, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list listings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list listings"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"listings": models.NewListingViews(listings),
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	}))
}
