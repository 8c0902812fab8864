package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/car-marketplace/internal/lib/jwt"
	"github.com/magabrotheeeer/car-marketplace/internal/lib/password"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	users := new(UsersMock)
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	svc := NewAuthService(users, maker)

	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "seller@example.com" &&
			u.Username == "seller" &&
			u.Role == "user" &&
			u.SubscriptionTier == models.TierFree &&
			u.PremiumCreditsRemaining == 0 &&
			password.CompareHash(u.PasswordHash, "strongpass") == nil
	})).Return("uid-1", nil).Once()

	uid, err := svc.Register(context.Background(), models.DummyRegister{
		Email:    "seller@example.com",
		Username: "seller",
		Password: "strongpass",
		Phone:    "+15550001122",
	})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	users.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := password.GetHash("strongpass")
	require.NoError(t, err)

	tests := []struct {
		name        string
		setupMocks  func(u *UsersMock)
		rawPassword string
		wantErr     error
	}{
		{
			name: "success",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "seller").Return(&models.User{
					UUID:         "uid-1",
					Username:     "seller",
					PasswordHash: hashed,
					Role:         "user",
				}, nil).Once()
			},
			rawPassword: "strongpass",
		},
		{
			name: "wrong password",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "seller").Return(&models.User{
					UUID:         "uid-1",
					Username:     "seller",
					PasswordHash: hashed,
				}, nil).Once()
			},
			rawPassword: "wrongpass",
			wantErr:     ErrInvalidCredentials,
		},
		{
			name: "unknown user maps to invalid credentials",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "seller").
					Return(nil, models.ErrUserNotFound).Once()
			},
			rawPassword: "strongpass",
			wantErr:     ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			maker := jwt.NewJWTMaker("test-secret", time.Hour)
			svc := NewAuthService(users, maker)
			tt.setupMocks(users)

			token, role, err := svc.Login(context.Background(), "seller", tt.rawPassword)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user", role)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, "seller", claims.Username)
			assert.Equal(t, "uid-1", claims.UserUID)
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	svc := NewAuthService(new(UsersMock), maker)

	token, err := maker.GenerateToken("seller", "user", "uid-1")
	require.NoError(t, err)

	user, role, ok, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user", role)
	assert.Equal(t, "uid-1", user.UUID)

	_, _, ok, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
	assert.False(t, ok)
}
