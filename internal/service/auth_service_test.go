package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneer-isp/helpdesk/internal/auth"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

func TestLogin(t *testing.T) {
	h := newHarness(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(h.staff, tokens, nil)

	staff, token, err := svc.Login(h.ctx, " Chuck ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "chuck", staff.Username)
	assert.Equal(t, staff.ID, token.StaffID)

	claims, err := tokens.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.Subject)
	assert.Equal(t, "chuck", claims.Username)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	svc := NewAuthService(h.staff, auth.NewTokenManager("test-secret", time.Hour), nil)
	_, err := h.staff.SetActive(h.ctx, h.scope(t, "admin"), "gabby", false)
	require.NoError(t, err)

	attempts := map[string][2]string{
		"unknown user":   {"zed", testPassword},
		"wrong password": {"chuck", "not-the-password"},
		"inactive":       {"gabby", testPassword},
		"blank":          {"", ""},
	}
	for name, creds := range attempts {
		_, _, err := svc.Login(h.ctx, creds[0], creds[1])
		require.Error(t, err, name)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, apperrors.CodeUnauthorized, domainErr.Code, name)
		assert.Equal(t, "invalid credentials", domainErr.Message, name)
	}
}
