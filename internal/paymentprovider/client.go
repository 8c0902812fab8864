// Package paymentprovider оборачивает Stripe: создание checkout-сессий
// для покупки премиум-тарифов и проверку подписи webhook-событий.
package paymentprovider

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/magabrotheeeer/car-marketplace/internal/config"
)

// Client — клиент платёжного провайдера Stripe.
type Client struct {
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewClient создаёт новый клиент Stripe и устанавливает API-ключ.
func NewClient(cfg config.Stripe) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckoutSession создаёт одноразовую checkout-сессию на указанную
// сумму. UID пользователя кладётся в metadata сессии, чтобы webhook мог
// сопоставить платёж с пользователем.
func (c *Client) CreateCheckoutSession(userUID string, amount int, currency, planName string) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(planName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_uid": userUID,
			"amount":   strconv.Itoa(amount),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CheckoutSession{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

// VerifyWebhook проверяет подпись webhook-события и возвращает его.
func (c *Client) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	const op = "paymentprovider.VerifyWebhook"
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

// ExtractConfirmation разбирает событие checkout.session.completed
// в подтверждение платежа. Для остальных типов событий возвращает (nil, nil).
func ExtractConfirmation(event stripe.Event) (*PaymentConfirmation, error) {
	const op = "paymentprovider.ExtractConfirmation"

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userUID := sess.Metadata["user_uid"]
	if userUID == "" {
		return nil, fmt.Errorf("%s: session %s has no user_uid in metadata", op, sess.ID)
	}

	return &PaymentConfirmation{
		EventID:  event.ID,
		UserUID:  userUID,
		Amount:   int(sess.AmountTotal),
		Currency: string(sess.Currency),
	}, nil
}
