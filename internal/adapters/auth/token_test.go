package auth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/StudyRoom/internal/adapters/auth"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	v := auth.NewVerifier("test-secret")

	token, err := v.Issue("alice", "Alice", time.Minute)
	req.NoError(err)

	id, err := v.Verify(token)
	req.NoError(err)
	req.Equal(auth.Identity{User: "alice", Name: "Alice"}, id)
}

func TestVerifier_CarriesRole(t *testing.T) {
	req := require.New(t)
	v := auth.NewVerifier("test-secret")

	token, err := v.IssueRole("scheduler", "Scheduler", auth.RoleService, time.Minute)
	req.NoError(err)

	id, err := v.Verify(token)
	req.NoError(err)
	req.Equal(auth.RoleService, id.Role)
	req.Equal(domain.UserID("scheduler"), id.User)
}

func TestVerifier_Rejects(t *testing.T) {
	req := require.New(t)
	v := auth.NewVerifier("test-secret")

	_, err := v.Verify("")
	req.ErrorIs(err, auth.ErrNoToken)

	expired, err := v.Issue("alice", "Alice", -time.Minute)
	req.NoError(err)
	_, err = v.Verify(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)

	foreign, err := auth.NewVerifier("other-secret").Issue("alice", "Alice", time.Minute)
	req.NoError(err)
	_, err = v.Verify(foreign)
	req.ErrorIs(err, jwt.ErrTokenSignatureInvalid)

	anonymous, err := v.Issue("", "Nobody", time.Minute)
	req.NoError(err)
	_, err = v.Verify(anonymous)
	req.ErrorIs(err, domain.ErrUserIDEmpty)
}

func TestTokenFromRequest(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/api/ws/rooms/R1?token=from-query", nil)
	req.Equal("from-query", auth.TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	req.Equal("from-header", auth.TokenFromRequest(r))
}
