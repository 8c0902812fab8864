package promote

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Promote(ctx context.Context, ownerUID, listingID string) (*models.Listing, error) {
	args := m.Called(ctx, ownerUID, listingID)
	if res := args.Get(0); res != nil {
		return res.(*models.Listing), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestPromoteHandler(t *testing.T) {
	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное продвижение",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").Return(&models.Listing{
					ID:       "lst-1",
					OwnerUID: "uid-1",
					Title:    "2018 Toyota Camry",
					Status:   models.ListingStatusActive,
					Featured: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"featured":true`,
		},
		{
			name:    "нет кредитов",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").
					Return(nil, models.ErrInsufficientCredits)
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `"error":"no premium credits available"`,
		},
		{
			name:    "объявление уже продвинуто",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").
					Return(nil, models.ErrListingAlreadyFeatured)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"listing is already featured"`,
		},
		{
			name:    "объявление продано",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").
					Return(nil, models.ErrListingAlreadySold)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"listing is already sold"`,
		},
		{
			name:    "чужое объявление",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").
					Return(nil, models.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"listing belongs to another user"`,
		},
		{
			name:    "объявление не найдено",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("Promote", mock.Anything, "uid-1", "lst-1").
					Return(nil, models.ErrListingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"listing not found"`,
		},
		{
			name:           "нет пользователя в контексте",
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc)

			r := chi.NewRouter()
			r.Post("/listings/{id}/promote", h.ServeHTTP)

			req := httptest.NewRequest(http.MethodPost, "/listings/lst-1/promote", nil)
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
