package entitlement

import (
	"testing"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEffective(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in10d := now.AddDate(0, 0, 10)
	justExpired := now.Add(-time.Second)

	tests := []struct {
		name string
		user *models.User
		want Effective
	}{
		{
			name: "free user is always active with zero credits",
			user: &models.User{SubscriptionTier: models.TierFree},
			want: Effective{Tier: models.TierFree, CreditsRemaining: 0, IsActive: true},
		},
		{
			name: "nil user resolves to free",
			user: nil,
			want: Effective{Tier: models.TierFree, CreditsRemaining: 0, IsActive: true},
		},
		{
			name: "expired premium resolves to inactive free even though storage says premium",
			user: &models.User{
				SubscriptionTier:        models.TierPremium,
				PremiumCreditsRemaining: 3,
				SubscriptionExpiresAt:   &justExpired,
			},
			want: Effective{Tier: models.TierFree, CreditsRemaining: 0, IsActive: false, ExpiresAt: &justExpired},
		},
		{
			name: "active spotlight keeps stored tier and credits",
			user: &models.User{
				SubscriptionTier:        models.TierSpotlight,
				PremiumCreditsRemaining: 7,
				SubscriptionExpiresAt:   &in10d,
			},
			want: Effective{
				Tier:             models.TierSpotlight,
				CreditsRemaining: 7,
				IsActive:         true,
				ExpiresAt:        &in10d,
				DaysRemaining:    intPtr(10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEffective(tt.user, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEffective_Idempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 0, 30)
	user := &models.User{
		SubscriptionTier:        models.TierPremium,
		PremiumCreditsRemaining: 5,
		SubscriptionExpiresAt:   &expires,
	}

	first := ResolveEffective(user, now)
	second := ResolveEffective(user, now)

	assert.Equal(t, first, second)
	// входная запись не изменяется
	assert.Equal(t, models.TierPremium, user.SubscriptionTier)
	assert.Equal(t, 5, user.PremiumCreditsRemaining)
}

func TestResolveEffective_DaysRemainingRoundsUp(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// 36 часов до истечения — это 2 дня, не 1
	expires := now.Add(36 * time.Hour)
	user := &models.User{
		SubscriptionTier:      models.TierPremium,
		SubscriptionExpiresAt: &expires,
	}

	got := ResolveEffective(user, now)
	require.NotNil(t, got.DaysRemaining)
	assert.Equal(t, 2, *got.DaysRemaining)
}

func TestGrantForAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  int
		want    Grant
		wantErr error
	}{
		{
			name:   "premium threshold exactly",
			amount: 2999,
			want:   Grant{Tier: models.TierPremium, Credits: 5, DurationDays: 60},
		},
		{
			name:   "spotlight threshold exactly",
			amount: 4999,
			want:   Grant{Tier: models.TierSpotlight, Credits: 10, DurationDays: 90},
		},
		{
			name:   "between thresholds maps to premium",
			amount: 3500,
			want:   Grant{Tier: models.TierPremium, Credits: 5, DurationDays: 60},
		},
		{
			name:    "below premium threshold is an error",
			amount:  999,
			wantErr: models.ErrInvalidPaymentAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GrantForAmount(tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrant_ExpiresAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	g := Grant{Tier: models.TierPremium, Credits: 5, DurationDays: 60}
	assert.Equal(t, now.AddDate(0, 0, 60), g.ExpiresAt(now))
}

func TestIsEffectivelyPaid(t *testing.T) {
	now := time.Now()
	future := now.AddDate(0, 0, 5)
	past := now.AddDate(0, 0, -5)

	assert.False(t, IsEffectivelyPaid(&models.User{SubscriptionTier: models.TierFree}, now))
	assert.False(t, IsEffectivelyPaid(&models.User{
		SubscriptionTier:      models.TierPremium,
		SubscriptionExpiresAt: &past,
	}, now))
	assert.True(t, IsEffectivelyPaid(&models.User{
		SubscriptionTier:      models.TierPremium,
		SubscriptionExpiresAt: &future,
	}, now))
}

func intPtr(v int) *int { return &v }
