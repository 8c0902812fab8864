package models

import "errors"

// Доменные ошибки бизнес-логики. Обработчики HTTP сопоставляют их
// с кодами ответа через errors.Is, ошибки хранилища сюда не входят
// и превращаются в общий internal error на границе.
var (
	// ErrUserNotFound возвращается, если пользователь не существует.
	ErrUserNotFound = errors.New("user not found")
	// ErrListingNotFound возвращается, если объявление не существует.
	ErrListingNotFound = errors.New("listing not found")
	// ErrForbidden возвращается, если объявление принадлежит другому пользователю.
	ErrForbidden = errors.New("listing does not belong to user")
	// ErrInsufficientCredits возвращается при попытке продвинуть объявление без кредитов.
	ErrInsufficientCredits = errors.New("no premium credits remaining")
	// ErrListingAlreadyFeatured возвращается при повторном продвижении объявления.
	ErrListingAlreadyFeatured = errors.New("listing is already featured")
	// ErrListingAlreadySold возвращается при повторной пометке объявления проданным.
	ErrListingAlreadySold = errors.New("listing is already marked as sold")
	// ErrAlreadyOnPlan возвращается, если пользователь уже находится на целевом тарифе.
	ErrAlreadyOnPlan = errors.New("user is already on the requested plan")
	// ErrInvalidPlan возвращается, если целевой тариф понижения не basic и не premium.
	ErrInvalidPlan = errors.New("invalid downgrade plan")
	// ErrInvalidPaymentAmount возвращается, если сумма платежа ниже минимального тарифа.
	ErrInvalidPaymentAmount = errors.New("payment amount below lowest tier threshold")
	// ErrPaymentAlreadyProcessed возвращается при повторной доставке платёжного события.
	ErrPaymentAlreadyProcessed = errors.New("payment event already processed")
)
