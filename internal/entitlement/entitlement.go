// Package entitlement содержит чистое ядро подписочных прав:
// вычисление эффективного состояния подписки на момент времени
// и расчёт гранта по сумме платежа. Пакет не обращается к хранилищу
// и не имеет побочных эффектов.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// Пороговые суммы тарифов в минорных единицах валюты и параметры грантов.
const (
	PremiumThreshold   = 2999 // $29.99
	SpotlightThreshold = 4999 // $49.99

	PremiumCredits   = 5
	SpotlightCredits = 10

	PremiumDurationDays   = 60
	SpotlightDurationDays = 90
)

// Effective описывает наблюдаемое состояние подписки пользователя
// на текущий момент. Просроченная подписка отражается как free ещё до того,
// как фоновая выверка приведёт хранимую запись в соответствие.
type Effective struct {
	Tier             string     `json:"tier"`
	CreditsRemaining int        `json:"credits_remaining"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	DaysRemaining    *int       `json:"days_remaining,omitempty"`
}

// ResolveEffective вычисляет эффективное состояние подписки по хранимой
// записи пользователя и моменту времени now. Функция чистая: повторный вызов
// с теми же аргументами возвращает тот же результат и ничего не изменяет.
//
// Просроченная запись трактуется как free с нулём кредитов, при этом
// хранимая дата истечения сохраняется в ответе для отображения.
func ResolveEffective(u *models.User, now time.Time) Effective {
	if u == nil || u.SubscriptionTier == "" || u.SubscriptionTier == models.TierFree {
		return Effective{Tier: models.TierFree, CreditsRemaining: 0, IsActive: true}
	}

	if u.SubscriptionExpiresAt != nil && !u.SubscriptionExpiresAt.After(now) {
		return Effective{
			Tier:             models.TierFree,
			CreditsRemaining: 0,
			IsActive:         false,
			ExpiresAt:        u.SubscriptionExpiresAt,
		}
	}

	eff := Effective{
		Tier:             u.SubscriptionTier,
		CreditsRemaining: u.PremiumCreditsRemaining,
		IsActive:         true,
		ExpiresAt:        u.SubscriptionExpiresAt,
	}
	if u.SubscriptionExpiresAt != nil {
		days := daysUntil(now, *u.SubscriptionExpiresAt)
		if days > 0 {
			eff.DaysRemaining = &days
		}
	}
	return eff
}

// IsEffectivelyPaid сообщает, действует ли у пользователя оплаченный тариф
// прямо сейчас. Используется грант-движком, чтобы решить, сбрасывать ли
// дату начала подписки.
func IsEffectivelyPaid(u *models.User, now time.Time) bool {
	eff := ResolveEffective(u, now)
	return eff.IsActive && eff.Tier != models.TierFree
}

// Grant описывает результат применения платежа: целевой тариф,
// количество кредитов и длительность действия.
type Grant struct {
	Tier         string
	Credits      int
	DurationDays int
}

// GrantForAmount сопоставляет сумму платежа с тарифом. Сумма ниже порога
// premium — ошибка models.ErrInvalidPaymentAmount, а не тихий no-op.
func GrantForAmount(amount int) (Grant, error) {
	switch {
	case amount >= SpotlightThreshold:
		return Grant{Tier: models.TierSpotlight, Credits: SpotlightCredits, DurationDays: SpotlightDurationDays}, nil
	case amount >= PremiumThreshold:
		return Grant{Tier: models.TierPremium, Credits: PremiumCredits, DurationDays: PremiumDurationDays}, nil
	default:
		return Grant{}, models.ErrInvalidPaymentAmount
	}
}

// ExpiresAt возвращает момент истечения гранта, применённого в момент now.
func (g Grant) ExpiresAt(now time.Time) time.Time {
	return now.AddDate(0, 0, g.DurationDays)
}

func daysUntil(now, expires time.Time) int {
	diff := expires.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
