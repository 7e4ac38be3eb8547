package services_test

import (
	"context"
	"spendsage-server/src/access"
	"spendsage-server/src/auth"
	"spendsage-server/src/models"
	"spendsage-server/src/services"
	mock_services "spendsage-server/src/services/mocks"
	"spendsage-server/src/store/memory"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newUserService(cache services.UserCache) *services.UserService {
	tokens := auth.NewTokenManager(testSecret, 5*time.Minute, time.Hour)
	return services.NewUserService(memory.New(), tokens, cache, zap.NewNop())
}

func register(t *testing.T, users *services.UserService, body string) *models.User {
	t.Helper()
	in, err := services.BindRegister(payload(t, body))
	require.NoError(t, err)
	u, err := users.Register(context.Background(), in)
	require.NoError(t, err)
	return u
}

func TestRegisterLoginRefresh(t *testing.T) {
	ctx := context.Background()
	users := newUserService(nil)
	u := register(t, users, `{"email":" Alice@Example.com ","username":"alice","password":"Str0ng!pass"}`)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.DefaultCurrency, u.CurrencyPreference)

	_, err := users.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = users.Login(ctx, "nobody@example.com", "Str0ng!pass")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	pair, err := users.Login(ctx, "ALICE@example.com", "Str0ng!pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, pair.UserID)

	p, err := users.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	_, err = users.Authenticate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	fresh, err := users.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	_, err = users.Authenticate(ctx, fresh)
	require.NoError(t, err)

	_, err = users.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	profile, err := users.Profile(ctx, p)
	require.NoError(t, err)
	assert.NotNil(t, profile.LastLogin)
}

func TestRegisterValidation(t *testing.T) {
	users := newUserService(nil)
	register(t, users, `{"email":"a@example.com","username":"alice","password":"Str0ng!pass"}`)

	in, err := services.BindRegister(payload(t, `{"email":"A@example.com","username":"other","password":"Str0ng!pass"}`))
	require.NoError(t, err)
	_, err = users.Register(context.Background(), in)
	requireFieldError(t, err, "email")

	in, err = services.BindRegister(payload(t, `{"email":"b@example.com","username":"alice","password":"Str0ng!pass"}`))
	require.NoError(t, err)
	_, err = users.Register(context.Background(), in)
	requireFieldError(t, err, "username")

	in, err = services.BindRegister(payload(t, `{"email":"nope","username":"x","password":"weak","currency_preference":"rupees"}`))
	require.NoError(t, err)
	_, err = users.Register(context.Background(), in)
	verr := requireFieldError(t, err, "email")
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "currency_preference")
}

func TestAuthenticateUsesCache(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	cache := mock_services.NewMockUserCache(ctrl)
	users := newUserService(cache)
	u := register(t, users, `{"email":"a@example.com","username":"alice","password":"Str0ng!pass"}`)

	gomock.InOrder(
		cache.EXPECT().Get(u.ID).Return(nil, false),
		cache.EXPECT().Set(gomock.Any()),
		cache.EXPECT().Get(u.ID).Return(u, true),
	)

	pair, err := users.Login(ctx, "a@example.com", "Str0ng!pass")
	require.NoError(t, err)
	_, err = users.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	_, err = users.Authenticate(ctx, pair.Access)
	require.NoError(t, err)

	cache.EXPECT().Del(u.ID)
	in, err := services.BindProfile(payload(t, `{"name":"Alice A","email":"evil@example.com"}`))
	require.NoError(t, err)
	updated, err := users.UpdateProfile(ctx, access.Principal{UserID: u.ID, Email: u.Email}, in)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", updated.Name)
	assert.Equal(t, "a@example.com", updated.Email)
}
