// Package services содержит бизнес-логику подписочных прав:
// применение платежей, ручную смену тарифа и фоновое
// сведение просроченных подписок к фактическому состоянию.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/sl"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// SubscriptionRepository определяет методы для работы с подписочным состоянием в хранилище.
type SubscriptionRepository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// ApplyPaymentGrant атомарно фиксирует платёжное событие и применяет грант.
	ApplyPaymentGrant(ctx context.Context, eventID, userUID string,
		amount int, currency string, grant entitlement.Grant, now time.Time) (*models.User, error)
	// UpdateSubscriptionPlan перезаписывает тариф и остаток кредитов, не трогая срок действия.
	UpdateSubscriptionPlan(ctx context.Context, userUID, tier string, credits int) (*models.User, error)
	// FindExpiredSubscriptions возвращает пользователей с истёкшей платной подпиской.
	FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error)
	// DowngradeExpiredSubscriptions массово переводит просроченные подписки на free.
	DowngradeExpiredSubscriptions(ctx context.Context, now time.Time) (int, error)
	// ListPaymentEvents возвращает обработанные платёжные события пользователя.
	ListPaymentEvents(ctx context.Context, userUID string) ([]*models.PaymentEvent, error)
}

// Notifier публикует уведомления для внешних воркеров.
// Nil-значение допустимо: уведомления просто не отправляются.
type Notifier interface {
	Publish(message any) error
}

// SubscriptionService реализует бизнес-логику подписочных прав.
type SubscriptionService struct {
	repo     SubscriptionRepository
	notifier Notifier
	log      *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, notifier Notifier, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// GetEffective возвращает эффективное состояние подписки пользователя на текущий момент.
// Чтение всегда идёт в хранилище: состояние прав не кешируется.
func (s *SubscriptionService) GetEffective(ctx context.Context, userUID string) (*entitlement.Effective, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	eff := entitlement.ResolveEffective(user, time.Now().UTC())
	return &eff, nil
}

// ApplyPayment применяет подтверждённый платёж: вычисляет грант по сумме
// и атомарно записывает его вместе с платёжным событием. Повторная доставка
// того же события возвращает models.ErrPaymentAlreadyProcessed и не меняет состояние.
func (s *SubscriptionService) ApplyPayment(ctx context.Context, eventID, userUID string,
	amount int, currency string) (*models.User, error) {
	grant, err := entitlement.GrantForAmount(amount)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.ApplyPaymentGrant(ctx, eventID, userUID, amount, currency, grant, time.Now().UTC())
	if errors.Is(err, models.ErrPaymentAlreadyProcessed) {
		s.log.Warn("payment event already processed, skipping",
			slog.String("event_id", eventID), slog.String("user_uid", userUID))
		return user, err
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("applied payment grant",
		slog.String("user_uid", userUID),
		slog.String("tier", grant.Tier),
		slog.Int("credits", grant.Credits))
	return user, nil
}

// Downgrade выполняет добровольный переход пользователя строго на ступень
// ниже сохранённого тарифа. Тариф и кредиты перезаписываются сразу,
// срок действия подписки не меняется.
func (s *SubscriptionService) Downgrade(ctx context.Context, userUID, targetPlan string) (*models.User, error) {
	var tier string
	var credits int
	switch targetPlan {
	case "basic":
		tier, credits = models.TierFree, 0
	case "premium":
		tier, credits = models.TierPremium, entitlement.PremiumCredits
	default:
		return nil, models.ErrInvalidPlan
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	// Сравнение идёт с сохранённым тарифом, а не с эффективным:
	// повторный no-op запрос отклоняется явно.
	if user.SubscriptionTier == tier {
		return nil, models.ErrAlreadyOnPlan
	}
	// Допускается только строгий шаг вниз: premium доступен лишь со spotlight,
	// basic — лишь с платного тарифа. Иначе бесплатный пользователь получил бы
	// неоплаченный premium с кредитами через этот маршрут.
	if tier == models.TierPremium && user.SubscriptionTier != models.TierSpotlight {
		return nil, models.ErrInvalidPlan
	}

	updated, err := s.repo.UpdateSubscriptionPlan(ctx, userUID, tier, credits)
	if err != nil {
		return nil, err
	}
	s.log.Info("downgraded subscription",
		slog.String("user_uid", userUID),
		slog.String("from", user.SubscriptionTier),
		slog.String("to", tier))
	return updated, nil
}

// ListPayments возвращает историю обработанных платёжных событий пользователя.
func (s *SubscriptionService) ListPayments(ctx context.Context, userUID string) ([]*models.PaymentEvent, error) {
	return s.repo.ListPaymentEvents(ctx, userUID)
}

// SweepExpired находит всех пользователей с истёкшей платной подпиской,
// массово переводит их на free и публикует уведомление по каждому.
// Возвращает количество обработанных пользователей.
func (s *SubscriptionService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	expired, err := s.repo.FindExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		s.log.Info("no expired subscriptions found")
		return 0, nil
	}

	count, err := s.repo.DowngradeExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}
	s.log.Info("downgraded expired subscriptions", slog.Int("count", count))

	if s.notifier != nil {
		for _, user := range expired {
			notice := models.ExpiredSubscriptionNotice{
				UserUID:   user.UUID,
				Email:     user.Email,
				Username:  user.Username,
				Tier:      user.SubscriptionTier,
				ExpiredAt: user.SubscriptionExpiresAt,
			}
			if err := s.notifier.Publish(notice); err != nil {
				s.log.Error("failed to publish expired notice", sl.Err(err),
					slog.String("user_uid", user.UUID))
			}
		}
	}
	return count, nil
}
