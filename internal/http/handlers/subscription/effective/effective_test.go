package effective

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/http/middlewarectx"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetEffective(ctx context.Context, userUID string) (*entitlement.Effective, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*entitlement.Effective), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestEffectiveHandler(t *testing.T) {
	expires := time.Now().UTC().Add(48 * time.Hour)
	days := 2

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "active premium entitlement",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("GetEffective", mock.Anything, "uid-1").Return(&entitlement.Effective{
					Tier:             models.TierPremium,
					CreditsRemaining: 3,
					IsActive:         true,
					ExpiresAt:        &expires,
					DaysRemaining:    &days,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier":"premium"`,
		},
		{
			name:           "missing user in context",
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:    "service error",
			userUID: "uid-1",
			setupMock: func(m *MockService) {
				m.On("GetEffective", mock.Anything, "uid-1").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not resolve subscription state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/effective", nil)
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
