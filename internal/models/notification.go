package models

import "time"

// ExpiredSubscriptionNotice — сообщение для очереди уведомлений
// об истёкшей подписке пользователя.
type ExpiredSubscriptionNotice struct {
	UserUID   string     `json:"user_uid"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Tier      string     `json:"tier"`
	ExpiredAt *time.Time `json:"expired_at,omitempty"`
}
