package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndParseAccess(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, time.Hour)
	tok, err := m.IssueAccess(7, "a@x.com")
	require.NoError(t, err)

	claims, err := m.Parse(tok, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, time.Hour)
	access, err := m.IssueAccess(7, "a@x.com")
	require.NoError(t, err)
	refresh, err := m.IssueRefresh(7, "a@x.com")
	require.NoError(t, err)

	_, err = m.Parse(access, TokenRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAndForeignTokensRejected(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return issuedAt }
	tok, err := m.IssueAccess(7, "a@x.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(tok, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager("another-secret-another-secret-xx", time.Minute, time.Hour)
	fresh, err := other.IssueAccess(7, "a@x.com")
	require.NoError(t, err)
	_, err = m.Parse(fresh, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Str0ng!pw")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Str0ng!pw"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
