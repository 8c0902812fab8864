package models

import "time"

// Статусы объявления. Статус — единственный источник истины о продаже,
// префикс "SOLD - " в заголовке добавляется только при отображении.
const (
	ListingStatusActive = "active"
	ListingStatusSold   = "sold"
)

// SoldTitlePrefix добавляется к заголовку проданного объявления при отдаче клиенту.
const SoldTitlePrefix = "SOLD - "

// Listing представляет объявление о продаже автомобиля.
type Listing struct {
	ID            string     // Уникальный идентификатор объявления
	OwnerUID      string     // UID пользователя-продавца
	Title         string     // Заголовок объявления
	Description   string     // Описание
	Price         int        // Цена в минорных единицах валюты
	Currency      string     // Валюта цены
	Make          string     // Марка автомобиля
	Model         string     // Модель автомобиля
	Year          int        // Год выпуска
	Mileage       int        // Пробег
	Location      string     // Локация продавца
	Status        string     // active или sold
	Featured      bool       // Продвинуто ли объявление за премиум-кредит
	FeaturedUntil *time.Time // До какого момента действует продвижение
	CreatedAt     time.Time

	// Контактные данные владельца, подтягиваются при чтении для отображения.
	OwnerName  string
	OwnerEmail string
	OwnerPhone string
}

// DisplayTitle возвращает заголовок для отображения: для проданных
// объявлений добавляется префикс SoldTitlePrefix.
func (l *Listing) DisplayTitle() string {
	if l.Status == ListingStatusSold {
		return SoldTitlePrefix + l.Title
	}
	return l.Title
}

// ListingView — представление объявления в ответах API.
// Заголовок проданного объявления отдаётся с префиксом SoldTitlePrefix.
type ListingView struct {
	ID            string     `json:"id"`
	OwnerUID      string     `json:"owner_uid"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Price         int        `json:"price"`
	Currency      string     `json:"currency"`
	Make          string     `json:"make"`
	Model         string     `json:"model"`
	Year          int        `json:"year"`
	Mileage       int        `json:"mileage"`
	Location      string     `json:"location,omitempty"`
	Status        string     `json:"status"`
	Featured      bool       `json:"featured"`
	FeaturedUntil *time.Time `json:"featured_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	OwnerName     string     `json:"owner_name,omitempty"`
	OwnerEmail    string     `json:"owner_email,omitempty"`
	OwnerPhone    string     `json:"owner_phone,omitempty"`
}

// NewListingView собирает представление объявления для ответа API.
func NewListingView(l *Listing) ListingView {
	return ListingView{
		ID:            l.ID,
		OwnerUID:      l.OwnerUID,
		Title:         l.DisplayTitle(),
		Description:   l.Description,
		Price:         l.Price,
		Currency:      l.Currency,
		Make:          l.Make,
		Model:         l.Model,
		Year:          l.Year,
		Mileage:       l.Mileage,
		Location:      l.Location,
		Status:        l.Status,
		Featured:      l.Featured,
		FeaturedUntil: l.FeaturedUntil,
		CreatedAt:     l.CreatedAt,
		OwnerName:     l.OwnerName,
		OwnerEmail:    l.OwnerEmail,
		OwnerPhone:    l.OwnerPhone,
	}
}

// NewListingViews собирает представления для списка объявлений.
func NewListingViews(listings []*Listing) []ListingView {
	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, NewListingView(l))
	}
	return views
}

// DummyListing используется для приёма данных объявления из JSON-запроса.
type DummyListing struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Price       int    `json:"price" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Make        string `json:"make" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Year        int    `json:"year" validate:"required,gte=1900"`
	Mileage     int    `json:"mileage" validate:"gte=0"`
	Location    string `json:"location"`
}

// ListingFilter описывает параметры поиска по каталогу объявлений.
// Nil-поле означает отсутствие фильтра по этому признаку.
type ListingFilter struct {
	Make        *string
	Model       *string
	YearMin     *int
	YearMax     *int
	PriceMin    *int
	PriceMax    *int
	Query       *string // Поиск подстроки по заголовку, описанию, марке и модели
	Featured    *bool
	IncludeSold bool // По умолчанию проданные объявления скрыты из каталога
	Sort        string
	Limit       int
	Offset      int
}

// Варианты сортировки каталога.
const (
	SortNewest     = "newest"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortMileageAsc = "mileage_asc"
)
