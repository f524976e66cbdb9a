package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/safe2go/support-import/internal/domain"
)

// TokenManager validates bearer tokens issued by the authentication service.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Claims describes JWT payload.
type Claims struct {
	Name string              `json:"name"`
	Role domain.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}

// Operator returns the operator the claims identify.
func (c *Claims) Operator() domain.Operator {
	return domain.Operator{ID: c.Subject, Name: strings.TrimSpace(c.Name), Role: c.Role}
}

// GenerateToken signs a token for an operator. The service never issues
// tokens itself; this exists for tests and local tooling.
func (tm *TokenManager) GenerateToken(op domain.Operator, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Name: op.Name,
		Role: op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID,
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

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || strings.TrimSpace(claims.Name) == "" {
		return nil, errors.New("token is missing operator identity")
	}
	return claims, nil
}
