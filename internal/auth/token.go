package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

const clockSkew = 30 * time.Second

// TokenManager verifies bearer tokens minted by the identity provider. It can
// also mint them, which tests and local tooling rely on.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithIssuer pins the expected iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(tm *TokenManager) { tm.issuer = issuer }
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int, opts ...TokenOption) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	tm := &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims carries the caller identity resolved by the upstream identity provider.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts claims into the actor used by the services.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{ID: c.Subject, Role: c.Role}
}

// GenerateToken builds and signs a JWT for the actor.
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the signature, expiry and issuer, then checks that the
// token names a subject with a caller-facing role.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || !validRole(claims.Role) {
		return nil, errors.New("token missing subject or role")
	}
	return claims, nil
}

func validRole(role domain.Role) bool {
	switch role {
	case domain.RoleStudent, domain.RoleParent, domain.RoleStaff, domain.RoleSupervisor, domain.RoleAdmin:
		return true
	}
	return false
}
