package models

import "time"

// PaymentEvent представляет обработанное платёжное событие провайдера.
// Таблица служит журналом идемпотентности: событие с уже известным ID
// повторно не применяется, даже если провайдер доставил его дважды.
type PaymentEvent struct {
	EventID     string    `json:"event_id"`
	UserUID     string    `json:"user_uid"`
	Amount      int       `json:"amount"`
	Currency    string    `json:"currency"`
	ProcessedAt time.Time `json:"processed_at"`
}
