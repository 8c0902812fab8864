// Package services содержит бизнес-логику каталога объявлений:
// CRUD и поиск, кеширование карточек, продвижение за кредиты
// и фиксацию продажи.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// ListingRepository определяет методы для работы с объявлениями в хранилище.
type ListingRepository interface {
	// CreateListing добавляет новое объявление и возвращает его ID.
	CreateListing(ctx context.Context, listing models.Listing) (string, error)
	// GetListing возвращает объявление по ID вместе с контактами продавца.
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	// ListListings возвращает страницу объявлений по фильтру и общее количество.
	ListListings(ctx context.Context, filter models.ListingFilter) ([]*models.Listing, int, error)
	// ListUserListings возвращает все объявления пользователя, включая проданные.
	ListUserListings(ctx context.Context, ownerUID string) ([]*models.Listing, error)
	// UpdateListing обновляет объявление владельца.
	UpdateListing(ctx context.Context, ownerUID, id string, req models.DummyListing) (*models.Listing, error)
	// RemoveListing удаляет объявление владельца.
	RemoveListing(ctx context.Context, ownerUID, id string) error
	// PromoteListing списывает премиум-кредит и помечает объявление как featured.
	PromoteListing(ctx context.Context, ownerUID, listingID string, now time.Time) (*models.Listing, error)
	// MarkListingSold необратимо помечает объявление проданным.
	MarkListingSold(ctx context.Context, ownerUID, listingID string) (*models.Listing, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// ListingService реализует бизнес-логику каталога объявлений.
// Кешируются только карточки объявлений; подписочное состояние
// пользователей через этот кеш не проходит.
type ListingService struct {
	repo  ListingRepository
	cache Cache
	log   *slog.Logger
}

// NewListingService создает новый экземпляр ListingService.
func NewListingService(repo ListingRepository, cache Cache, log *slog.Logger) *ListingService {
	return &ListingService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func listingCacheKey(id string) string {
	return fmt.Sprintf("listing:%s", id)
}

// Create создает новое объявление со статусом active и кеширует его.
func (s *ListingService) Create(ctx context.Context, ownerUID string, req models.DummyListing) (*models.Listing, error) {
	listing := models.Listing{
		OwnerUID:    ownerUID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Location:    req.Location,
		Status:      models.ListingStatusActive,
	}

	id, err := s.repo.CreateListing(ctx, listing)
	if err != nil {
		return nil, err
	}
	s.log.Info("created new listing", slog.String("id", id))

	created, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	cacheKey := listingCacheKey(id)
	if err := s.cache.Set(cacheKey, created, time.Hour); err != nil {
		s.log.Warn("failed to cache listing", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return created, nil
}

// Read возвращает объявление по ID, используя кеш или репозиторий.
func (s *ListingService) Read(ctx context.Context, id string) (*models.Listing, error) {
	var result *models.Listing
	cacheKey := listingCacheKey(id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		return nil, err
	}
	if found {
		return result, nil
	}
	result, err = s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
			s.log.Warn("failed to add to cache", slog.String("key", cacheKey),
				slog.Any("err", err))
		}
	}
	return result, nil
}

// List возвращает страницу объявлений по фильтру и общее количество совпадений.
// Страницы поиска не кешируются: комбинаций фильтров слишком много.
func (s *ListingService) List(ctx context.Context, filter models.ListingFilter) ([]*models.Listing, int, error) {
	return s.repo.ListListings(ctx, filter)
}

// ListMine возвращает все объявления пользователя, включая проданные.
func (s *ListingService) ListMine(ctx context.Context, ownerUID string) ([]*models.Listing, error) {
	return s.repo.ListUserListings(ctx, ownerUID)
}

// Update обновляет объявление владельца и обновляет кеш.
func (s *ListingService) Update(ctx context.Context, ownerUID, id string, req models.DummyListing) (*models.Listing, error) {
	updated, err := s.repo.UpdateListing(ctx, ownerUID, id, req)
	if err != nil {
		return nil, err
	}
	s.log.Info("updated listing", slog.String("id", id))

	cacheKey := listingCacheKey(id)
	if err := s.cache.Set(cacheKey, updated, time.Hour); err != nil {
		s.log.Warn("failed to cache listing", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return updated, nil
}

// Remove удаляет объявление владельца и инвалидирует кеш.
func (s *ListingService) Remove(ctx context.Context, ownerUID, id string) error {
	cacheKey := listingCacheKey(id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return s.repo.RemoveListing(ctx, ownerUID, id)
}

// Promote списывает один премиум-кредит владельца и помечает объявление
// как featured до конца срока действия подписки. Проверка кредитов идёт
// по эффективному состоянию подписки на момент вызова.
func (s *ListingService) Promote(ctx context.Context, ownerUID, listingID string) (*models.Listing, error) {
	listing, err := s.repo.PromoteListing(ctx, ownerUID, listingID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.log.Info("promoted listing",
		slog.String("id", listingID),
		slog.String("owner_uid", ownerUID))

	cacheKey := listingCacheKey(listingID)
	if err := s.cache.Set(cacheKey, listing, time.Hour); err != nil {
		s.log.Warn("failed to cache listing", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return listing, nil
}

// MarkSold необратимо помечает объявление проданным: снимает featured,
// скрывает его из выдачи каталога. Потраченный кредит не возвращается.
func (s *ListingService) MarkSold(ctx context.Context, ownerUID, listingID string) (*models.Listing, error) {
	listing, err := s.repo.MarkListingSold(ctx, ownerUID, listingID)
	if err != nil {
		return nil, err
	}
	s.log.Info("marked listing as sold", slog.String("id", listingID))

	cacheKey := listingCacheKey(listingID)
	if err := s.cache.Set(cacheKey, listing, time.Hour); err != nil {
		s.log.Warn("failed to cache listing", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return listing, nil
}
