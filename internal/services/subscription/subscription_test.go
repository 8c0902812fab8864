package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/car-marketplace/internal/entitlement"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ApplyPaymentGrant(ctx context.Context, eventID, userUID string,
	amount int, currency string, grant entitlement.Grant, now time.Time) (*models.User, error) {
	args := m.Called(ctx, eventID, userUID, amount, currency, grant, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) UpdateSubscriptionPlan(ctx context.Context, userUID, tier string, credits int) (*models.User, error) {
	args := m.Called(ctx, userUID, tier, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) DowngradeExpiredSubscriptions(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListPaymentEvents(ctx context.Context, userUID string) ([]*models.PaymentEvent, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentEvent), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Publish(message any) error {
	args := m.Called(message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSubscriptionService_GetEffective(t *testing.T) {
	future := time.Now().UTC().Add(48 * time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		wantTier   string
		wantActive bool
		wantErr    error
	}{
		{
			name: "active premium",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:                    "uid-1",
					SubscriptionTier:        models.TierPremium,
					PremiumCreditsRemaining: 3,
					SubscriptionExpiresAt:   &future,
				}, nil).Once()
			},
			wantTier:   models.TierPremium,
			wantActive: true,
		},
		{
			name: "expired spotlight resolves to free",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:                    "uid-1",
					SubscriptionTier:        models.TierSpotlight,
					PremiumCreditsRemaining: 7,
					SubscriptionExpiresAt:   &past,
				}, nil).Once()
			},
			wantTier:   models.TierFree,
			wantActive: false,
		},
		{
			name: "user not found",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(nil, models.ErrUserNotFound).Once()
			},
			wantErr: models.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := NewSubscriptionService(repo, nil, newNoopLogger())
			tt.setupMocks(repo)

			eff, err := svc.GetEffective(context.Background(), "uid-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantTier, eff.Tier)
				assert.Equal(t, tt.wantActive, eff.IsActive)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_ApplyPayment(t *testing.T) {
	tests := []struct {
		name       string
		amount     int
		setupMocks func(r *RepoMock)
		wantErr    error
	}{
		{
			name:   "premium grant for threshold amount",
			amount: 2999,
			setupMocks: func(r *RepoMock) {
				r.On("ApplyPaymentGrant", mock.Anything, "evt-1", "uid-1", 2999, "usd",
					mock.MatchedBy(func(g entitlement.Grant) bool {
						return g.Tier == models.TierPremium && g.Credits == entitlement.PremiumCredits
					}), mock.Anything).
					Return(&models.User{UUID: "uid-1", SubscriptionTier: models.TierPremium}, nil).Once()
			},
		},
		{
			name:   "spotlight grant for larger amount",
			amount: 5500,
			setupMocks: func(r *RepoMock) {
				r.On("ApplyPaymentGrant", mock.Anything, "evt-1", "uid-1", 5500, "usd",
					mock.MatchedBy(func(g entitlement.Grant) bool {
						return g.Tier == models.TierSpotlight && g.Credits == entitlement.SpotlightCredits
					}), mock.Anything).
					Return(&models.User{UUID: "uid-1", SubscriptionTier: models.TierSpotlight}, nil).Once()
			},
		},
		{
			name:       "amount below premium threshold is rejected before storage",
			amount:     100,
			setupMocks: func(_ *RepoMock) {},
			wantErr:    models.ErrInvalidPaymentAmount,
		},
		{
			name:   "duplicate event returns sentinel",
			amount: 2999,
			setupMocks: func(r *RepoMock) {
				r.On("ApplyPaymentGrant", mock.Anything, "evt-1", "uid-1", 2999, "usd",
					mock.Anything, mock.Anything).
					Return(&models.User{UUID: "uid-1"}, models.ErrPaymentAlreadyProcessed).Once()
			},
			wantErr: models.ErrPaymentAlreadyProcessed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := NewSubscriptionService(repo, nil, newNoopLogger())
			tt.setupMocks(repo)

			_, err := svc.ApplyPayment(context.Background(), "evt-1", "uid-1", tt.amount, "usd")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_Downgrade(t *testing.T) {
	expiresAt := time.Now().UTC().Add(30 * 24 * time.Hour)

	tests := []struct {
		name        string
		targetPlan  string
		setupMocks  func(r *RepoMock)
		wantTier    string
		wantCredits int
		wantErr     error
	}{
		{
			name:       "spotlight to premium keeps expiry and resets credits to five",
			targetPlan: "premium",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:                    "uid-1",
					SubscriptionTier:        models.TierSpotlight,
					PremiumCreditsRemaining: 4,
					SubscriptionExpiresAt:   &expiresAt,
				}, nil).Once()
				r.On("UpdateSubscriptionPlan", mock.Anything, "uid-1", models.TierPremium, 5).
					Return(&models.User{
						UUID:                    "uid-1",
						SubscriptionTier:        models.TierPremium,
						PremiumCreditsRemaining: 5,
						SubscriptionExpiresAt:   &expiresAt,
					}, nil).Once()
			},
			wantTier:    models.TierPremium,
			wantCredits: 5,
		},
		{
			name:       "premium to basic clears credits immediately",
			targetPlan: "basic",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:                    "uid-1",
					SubscriptionTier:        models.TierPremium,
					PremiumCreditsRemaining: 2,
				}, nil).Once()
				r.On("UpdateSubscriptionPlan", mock.Anything, "uid-1", models.TierFree, 0).
					Return(&models.User{
						UUID:             "uid-1",
						SubscriptionTier: models.TierFree,
					}, nil).Once()
			},
			wantTier: models.TierFree,
		},
		{
			name:       "already on target plan",
			targetPlan: "premium",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:             "uid-1",
					SubscriptionTier: models.TierPremium,
				}, nil).Once()
			},
			wantErr: models.ErrAlreadyOnPlan,
		},
		{
			name:       "free user cannot obtain premium through downgrade",
			targetPlan: "premium",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UUID:             "uid-1",
					SubscriptionTier: models.TierFree,
				}, nil).Once()
			},
			wantErr: models.ErrInvalidPlan,
		},
		{
			name:       "unknown plan",
			targetPlan: "platinum",
			setupMocks: func(_ *RepoMock) {},
			wantErr:    models.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := NewSubscriptionService(repo, nil, newNoopLogger())
			tt.setupMocks(repo)

			user, err := svc.Downgrade(context.Background(), "uid-1", tt.targetPlan)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantTier, user.SubscriptionTier)
				assert.Equal(t, tt.wantCredits, user.PremiumCreditsRemaining)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_SweepExpired(t *testing.T) {
	expiredAt := time.Now().UTC().Add(-24 * time.Hour)
	expiredUsers := []*models.User{
		{UUID: "uid-1", Email: "a@example.com", SubscriptionTier: models.TierPremium, SubscriptionExpiresAt: &expiredAt},
		{UUID: "uid-2", Email: "b@example.com", SubscriptionTier: models.TierSpotlight, SubscriptionExpiresAt: &expiredAt},
	}

	t.Run("downgrades and notifies each user", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		svc := NewSubscriptionService(repo, notifier, newNoopLogger())

		repo.On("FindExpiredSubscriptions", mock.Anything, mock.Anything).Return(expiredUsers, nil).Once()
		repo.On("DowngradeExpiredSubscriptions", mock.Anything, mock.Anything).Return(2, nil).Once()
		notifier.On("Publish", mock.MatchedBy(func(msg any) bool {
			notice, ok := msg.(models.ExpiredSubscriptionNotice)
			return ok && notice.UserUID == "uid-1"
		})).Return(nil).Once()
		notifier.On("Publish", mock.MatchedBy(func(msg any) bool {
			notice, ok := msg.(models.ExpiredSubscriptionNotice)
			return ok && notice.UserUID == "uid-2"
		})).Return(nil).Once()

		count, err := svc.SweepExpired(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("nothing expired skips downgrade", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewSubscriptionService(repo, nil, newNoopLogger())

		repo.On("FindExpiredSubscriptions", mock.Anything, mock.Anything).Return([]*models.User{}, nil).Once()

		count, err := svc.SweepExpired(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
		repo.AssertNotCalled(t, "DowngradeExpiredSubscriptions", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail the sweep", func(t *testing.T) {
		repo := new(RepoMock)
		notifier := new(NotifierMock)
		svc := NewSubscriptionService(repo, notifier, newNoopLogger())

		repo.On("FindExpiredSubscriptions", mock.Anything, mock.Anything).Return(expiredUsers[:1], nil).Once()
		repo.On("DowngradeExpiredSubscriptions", mock.Anything, mock.Anything).Return(1, nil).Once()
		notifier.On("Publish", mock.Anything).Return(errors.New("amqp down")).Once()

		count, err := svc.SweepExpired(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
