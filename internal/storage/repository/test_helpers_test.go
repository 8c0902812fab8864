package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/car-marketplace/internal/migrations"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

// setupTestDatabase поднимает контейнер PostgreSQL, применяет миграции
// и возвращает готовое хранилище вместе с функцией очистки.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	cleanup := func() {
		_ = storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его UID
func (f *TestDataFactory) CreateUser(t *testing.T, username, email string) string {
	t.Helper()
	var uid string
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, username, password_hash, role)
		VALUES ($1, $2, $3, $4) RETURNING uid`,
		email, username, "hashedpassword", "user").Scan(&uid)
	require.NoError(t, err)
	return uid
}

// SetSubscription выставляет пользователю тариф, кредиты и срок подписки напрямую
func (f *TestDataFactory) SetSubscription(t *testing.T, uid, tier string, credits int, expiresAt *time.Time) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE users
		SET subscription_tier = $1, premium_credits_remaining = $2, subscription_expires_at = $3
		WHERE uid = $4`,
		tier, credits, expiresAt, uid)
	require.NoError(t, err)
}

// CreateListing создает тестовое объявление и возвращает его ID
func (f *TestDataFactory) CreateListing(t *testing.T, ownerUID, title string, price int) string {
	t.Helper()
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO listings
		(owner_uid, title, description, price, currency, make, model, year, mileage, location, status)
		VALUES ($1, $2, '', $3, 'usd', 'BMW', '3 Series', 2018, 42000, '94105', $4)
		RETURNING id`,
		ownerUID, title, price, models.ListingStatusActive).Scan(&id)
	require.NoError(t, err)
	return id
}
