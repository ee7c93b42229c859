// Package auth verifies the bearer tokens clients present on connect.
// Issuing tokens for real users is another service's job; Issue exists for
// tooling and tests.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("missing token")

const issuer = "studyroom"

// RoleService marks tokens held by backend services rather than people.
// Only they may push notifications to arbitrary users.
const RoleService = "service"

// Claims carry the user id in the standard subject claim.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what a verified token says about the caller.
type Identity struct {
	User domain.UserID
	Name string
	Role string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs an HS256 token for user valid for ttl.
func (v *Verifier) Issue(user domain.UserID, name string, ttl time.Duration) (string, error) {
	return v.IssueRole(user, name, "", ttl)
}

// IssueRole is Issue with a role claim.
func (v *Verifier) IssueRole(user domain.UserID, name, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify checks signature, expiry and algorithm and returns the identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, jwt.ErrSignatureInvalid
	}
	if err := domain.ValidateUserID(domain.UserID(claims.Subject)); err != nil {
		return Identity{}, err
	}
	return Identity{User: domain.UserID(claims.Subject), Name: claims.Name, Role: claims.Role}, nil
}

// TokenFromRequest reads "Authorization: Bearer <t>", falling back to the
// token query parameter browsers must use for WebSocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("token")
}
