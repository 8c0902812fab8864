package paymentprovider

// CheckoutSession — результат создания checkout-сессии:
// её ID и URL для редиректа пользователя на оплату.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentConfirmation — подтверждение завершённого платежа,
// извлечённое из webhook-события.
type PaymentConfirmation struct {
	EventID  string // ID события у провайдера, ключ идемпотентности
	UserUID  string
	Amount   int // Сумма в минорных единицах валюты
	Currency string
}
