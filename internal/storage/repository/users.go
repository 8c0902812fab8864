package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/models"
	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
)

const userColumns = `uid, email, username, password_hash, role, phone,
			      subscription_tier, premium_credits_remaining,
			      subscription_expires_at, subscription_started_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var expiresAt, startedAt sql.NullTime
	if err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Phone,
		&u.SubscriptionTier, &u.PremiumCreditsRemaining,
		&expiresAt, &startedAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		u.SubscriptionExpiresAt = &expiresAt.Time
	}
	if startedAt.Valid {
		u.SubscriptionStartedAt = &startedAt.Time
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя и возвращает его UID.
// Подписка создаётся неявно: свежий пользователь всегда free без кредитов.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO users (email, username, password_hash, role, phone)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.Phone).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ApplyPaymentGrant применяет подтверждённый платёж к подписке пользователя
// в одной транзакции: запись пользователя блокируется, событие регистрируется
// в журнале идемпотентности, затем подписка обновляется. Повторная доставка
// того же события возвращает текущее состояние и models.ErrPaymentAlreadyProcessed.
//
// Дата начала подписки сбрасывается на now только если на момент гранта
// эффективный тариф пользователя был free или просрочен.
func (s *Storage) ApplyPaymentGrant(ctx context.Context, eventID, userUID string,
	amount int, currency string, grant entitlement.Grant, now time.Time) (*models.User, error) {
	const op = "storage.ApplyPaymentGrant"
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

	// Запись пользователя блокируется до записи в журнал: для неизвестного
	// пользователя возвращается ErrUserNotFound, а не нарушение внешнего ключа.
	lock := `SELECT ` + userColumns + ` FROM users WHERE uid = $1 FOR UPDATE`
	current, err := scanUser(tx.QueryRowContext(ctx, lock, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ledger := `INSERT INTO payment_events (event_id, user_uid, amount, currency, processed_at)
			   VALUES ($1, $2, $3, $4, $5)
			   ON CONFLICT (event_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, ledger, eventID, userUID, amount, currency, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if inserted == 0 {
		// дубликат webhook: грант уже применялся
		return current, models.ErrPaymentAlreadyProcessed
	}

	resetStarted := !entitlement.IsEffectivelyPaid(current, now)

	update := `UPDATE users
			   SET subscription_tier = $1,
			       premium_credits_remaining = $2,
			       subscription_expires_at = $3,
			       subscription_started_at = CASE WHEN $4 THEN $5 ELSE subscription_started_at END
			   WHERE uid = $6
			   RETURNING ` + userColumns
	updated, err := scanUser(tx.QueryRowContext(ctx, update,
		grant.Tier, grant.Credits, grant.ExpiresAt(now), resetStarted, now, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// UpdateSubscriptionPlan перезаписывает тариф и остаток кредитов пользователя.
// Дата истечения подписки намеренно не трогается: понижение не продлевает
// и не обрывает оплаченный период.
func (s *Storage) UpdateSubscriptionPlan(ctx context.Context, userUID, tier string, credits int) (*models.User, error) {
	const op = "storage.UpdateSubscriptionPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_tier = $1,
			      premium_credits_remaining = $2
			  WHERE uid = $3
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, tier, credits, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindExpiredSubscriptions возвращает пользователей с платным тарифом,
// чья подписка истекла к моменту now. Используется выверкой для
// формирования уведомлений перед массовым понижением.
func (s *Storage) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE subscription_tier IN ($1, $2)
			    AND subscription_expires_at < $3`
	rows, err := s.DB.QueryContext(ctx, query, models.TierPremium, models.TierSpotlight, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DowngradeExpiredSubscriptions массово понижает всех пользователей
// с истёкшей платной подпиской до free с нулём кредитов и возвращает
// количество затронутых строк. Дата истечения остаётся как исторический
// артефакт: тариф free отключает все проверки срока.
func (s *Storage) DowngradeExpiredSubscriptions(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.DowngradeExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_tier = $1,
			      premium_credits_remaining = 0
			  WHERE subscription_tier IN ($2, $3)
			    AND subscription_expires_at < $4`
	res, err := s.DB.ExecContext(ctx, query, models.TierFree, models.TierPremium, models.TierSpotlight, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}

// ListPaymentEvents возвращает журнал обработанных платёжных событий пользователя.
func (s *Storage) ListPaymentEvents(ctx context.Context, userUID string) ([]*models.PaymentEvent, error) {
	const op = "storage.ListPaymentEvents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT event_id, user_uid, amount, currency, processed_at
			  FROM payment_events
			  WHERE user_uid = $1
			  ORDER BY processed_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentEvent
	for rows.Next() {
		var e models.PaymentEvent
		if err := rows.Scan(&e.EventID, &e.UserUID, &e.Amount, &e.Currency, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
