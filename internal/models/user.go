// Package models содержит доменные структуры автомобильного маркетплейса:
// пользователей с их подписочными правами, объявления о продаже автомобилей
// и записи обработанных платёжных событий.
package models

import "time"

// Уровни подписки пользователя.
const (
	TierFree      = "free"      // Бесплатный уровень, без премиум-кредитов
	TierPremium   = "premium"   // Платный уровень premium
	TierSpotlight = "spotlight" // Платный уровень spotlight
)

// User представляет зарегистрированного пользователя системы
// вместе с его подписочными правами (entitlement). Подписка хранится
// прямо в записи пользователя: один пользователь — одна подписка.
type User struct {
	UUID                    string     // Уникальный идентификатор пользователя
	Email                   string     // Электронная почта
	Username                string     // Имя пользователя (уникальное)
	PasswordHash            string     // Хэш пароля пользователя
	Role                    string     // Роль пользователя, admin или user
	Phone                   string     // Телефон для связи в объявлениях
	SubscriptionTier        string     // Текущий уровень подписки: free, premium или spotlight
	PremiumCreditsRemaining int        // Сколько объявлений ещё можно сделать премиальными
	SubscriptionExpiresAt   *time.Time // Когда истекает оплаченная подписка, nil для free
	SubscriptionStartedAt   *time.Time // Когда начался текущий непрерывный платный период
	CreatedAt               time.Time
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone,omitempty"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required,alphanum"`
	Password string `json:"password" validate:"required"`
}
