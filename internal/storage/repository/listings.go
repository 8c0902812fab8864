package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/models"
	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
)

const listingColumns = `l.id, l.owner_uid, l.title, l.description, l.price, l.currency,
			      l.make, l.model, l.year, l.mileage, l.location, l.status,
			      l.featured, l.featured_until, l.created_at,
			      u.username, u.email, u.phone`

const listingFrom = ` FROM listings l JOIN users u ON u.uid = l.owner_uid `

func scanListing(row interface{ Scan(...any) error }) (*models.Listing, error) {
	l := &models.Listing{}
	var featuredUntil sql.NullTime
	if err := row.Scan(&l.ID, &l.OwnerUID, &l.Title, &l.Description, &l.Price, &l.Currency,
		&l.Make, &l.Model, &l.Year, &l.Mileage, &l.Location, &l.Status,
		&l.Featured, &featuredUntil, &l.CreatedAt,
		&l.OwnerName, &l.OwnerEmail, &l.OwnerPhone); err != nil {
		return nil, err
	}
	if featuredUntil.Valid {
		l.FeaturedUntil = &featuredUntil.Time
	}
	return l, nil
}

// CreateListing вставляет новое объявление и возвращает его ID.
func (s *Storage) CreateListing(ctx context.Context, listing models.Listing) (string, error) {
	const op = "storage.CreateListing"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO listings (owner_uid, title, description, price, currency,
			      make, model, year, mileage, location, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		listing.OwnerUID, listing.Title, listing.Description, listing.Price, listing.Currency,
		listing.Make, listing.Model, listing.Year, listing.Mileage, listing.Location,
		models.ListingStatusActive).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetListing возвращает объявление по ID вместе с контактами продавца.
func (s *Storage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	const op = "storage.GetListing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + listingColumns + listingFrom + `WHERE l.id = $1`
	l, err := scanListing(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// ListListings возвращает страницу каталога по фильтру вместе с общим
// количеством подходящих объявлений. Проданные объявления по умолчанию
// исключаются из выдачи.
func (s *Storage) ListListings(ctx context.Context, filter models.ListingFilter) ([]*models.Listing, int, error) {
	const op = "storage.ListListings"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildListingWhere(filter)

	countQuery := `SELECT COUNT(*)` + listingFrom + where
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + listingColumns + listingFrom + where + orderClause(filter.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, l)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

func buildListingWhere(filter models.ListingFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !filter.IncludeSold {
		add("l.status = $%d", models.ListingStatusActive)
	}
	if filter.Make != nil {
		add("LOWER(l.make) = LOWER($%d)", *filter.Make)
	}
	if filter.Model != nil {
		add("LOWER(l.model) = LOWER($%d)", *filter.Model)
	}
	if filter.YearMin != nil {
		add("l.year >= $%d", *filter.YearMin)
	}
	if filter.YearMax != nil {
		add("l.year <= $%d", *filter.YearMax)
	}
	if filter.PriceMin != nil {
		add("l.price >= $%d", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		add("l.price <= $%d", *filter.PriceMax)
	}
	if filter.Featured != nil {
		add("l.featured = $%d", *filter.Featured)
	}
	if filter.Query != nil {
		args = append(args, "%"+*filter.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(l.title ILIKE $%d OR l.description ILIKE $%d OR l.make ILIKE $%d OR l.model ILIKE $%d)",
			n, n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort string) string {
	switch sort {
	case models.SortPriceAsc:
		return " ORDER BY l.price ASC"
	case models.SortPriceDesc:
		return " ORDER BY l.price DESC"
	case models.SortMileageAsc:
		return " ORDER BY l.mileage ASC"
	default:
		return " ORDER BY l.created_at DESC"
	}
}

// ListUserListings возвращает все объявления продавца, включая проданные.
func (s *Storage) ListUserListings(ctx context.Context, ownerUID string) ([]*models.Listing, error) {
	const op = "storage.ListUserListings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + listingColumns + listingFrom + `WHERE l.owner_uid = $1
			  ORDER BY l.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateListing обновляет данные объявления владельца и возвращает его.
func (s *Storage) UpdateListing(ctx context.Context, ownerUID, id string, req models.DummyListing) (*models.Listing, error) {
	const op = "storage.UpdateListing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	current, err := s.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.OwnerUID != ownerUID {
		return nil, models.ErrForbidden
	}

	query := `UPDATE listings
			  SET title = $1, description = $2, price = $3, currency = $4,
			      make = $5, model = $6, year = $7, mileage = $8, location = $9
			  WHERE id = $10`
	if _, err := s.DB.ExecContext(ctx, query,
		req.Title, req.Description, req.Price, req.Currency,
		req.Make, req.Model, req.Year, req.Mileage, req.Location, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetListing(ctx, id)
}

// RemoveListing удаляет объявление владельца.
func (s *Storage) RemoveListing(ctx context.Context, ownerUID, id string) error {
	const op = "storage.RemoveListing"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	current, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if current.OwnerUID != ownerUID {
		return models.ErrForbidden
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PromoteListing тратит один премиум-кредит владельца на продвижение
// объявления. Проверка кредита, пометка объявления и списание выполняются
// в одной транзакции с блокировкой строки пользователя: при гонке двух
// продвижений с одним оставшимся кредитом выигрывает ровно одно.
//
// Кредит проверяется по эффективному состоянию подписки, а не по сырому
// счётчику: устаревший ненулевой остаток просроченной подписки потратить нельзя.
func (s *Storage) PromoteListing(ctx context.Context, ownerUID, listingID string, now time.Time) (*models.Listing, error) {
	const op = "storage.PromoteListing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	lock := `SELECT ` + userColumns + ` FROM users WHERE uid = $1 FOR UPDATE`
	owner, err := scanUser(tx.QueryRowContext(ctx, lock, ownerUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	eff := entitlement.ResolveEffective(owner, now)
	if eff.CreditsRemaining <= 0 {
		return nil, models.ErrInsufficientCredits
	}

	var listingOwner, status string
	var featured bool
	listingQuery := `SELECT owner_uid, status, featured FROM listings WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, listingQuery, listingID).Scan(&listingOwner, &status, &featured)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if listingOwner != ownerUID {
		return nil, models.ErrForbidden
	}
	if status == models.ListingStatusSold {
		return nil, models.ErrListingAlreadySold
	}
	if featured {
		return nil, models.ErrListingAlreadyFeatured
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE listings SET featured = TRUE, featured_until = $1 WHERE id = $2`,
		owner.SubscriptionExpiresAt, listingID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET premium_credits_remaining = premium_credits_remaining - 1 WHERE uid = $1`,
		ownerUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetListing(ctx, listingID)
}

// MarkListingSold помечает объявление проданным и снимает с него продвижение.
// Потраченный на продвижение кредит владельцу не возвращается.
func (s *Storage) MarkListingSold(ctx context.Context, ownerUID, listingID string) (*models.Listing, error) {
	const op = "storage.MarkListingSold"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var listingOwner, status string
	query := `SELECT owner_uid, status FROM listings WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, listingID).Scan(&listingOwner, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if listingOwner != ownerUID {
		return nil, models.ErrForbidden
	}
	if status == models.ListingStatusSold {
		return nil, models.ErrListingAlreadySold
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE listings SET status = $1, featured = FALSE, featured_until = NULL WHERE id = $2`,
		models.ListingStatusSold, listingID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetListing(ctx, listingID)
}
