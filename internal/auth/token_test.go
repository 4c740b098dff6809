package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 8*time.Hour)
	tm.now = func() time.Time { return now }

	token, err := tm.GenerateToken(&domain.StaffMember{ID: "staff-1", Username: "chuck", Group: domain.GroupSupport})
	require.NoError(t, err)
	assert.Equal(t, now.Add(8*time.Hour), token.ExpiresAt)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.Subject)
	assert.Equal(t, "chuck", claims.Username)
	assert.Equal(t, domain.GroupSupport, claims.Group)

	now = now.Add(9 * time.Hour)
	_, err = tm.ParseToken(token.Value)
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("one", time.Hour)
	verifier := NewTokenManager("two", time.Hour)

	token, err := issuer.GenerateToken(&domain.StaffMember{ID: "staff-1", Username: "chuck"})
	require.NoError(t, err)
	_, err = verifier.ParseToken(token.Value)
	assert.Error(t, err)

	_, err = verifier.ParseToken("garbage")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123", 4)
	require.NoError(t, err)
	assert.True(t, PasswordMatches(hash, "password123"))
	assert.False(t, PasswordMatches(hash, "password124"))
	assert.False(t, PasswordMatches("not-a-hash", "password123"))

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err = HashPassword("password123", 99)
	require.NoError(t, err)
	assert.True(t, PasswordMatches(hash, "password123"))
}
