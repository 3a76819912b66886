// Package auth authenticates staff and guards staff-only endpoints.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mesa/internal/domain"
)

// DefaultSessionDuration is the default staff session lifetime.
const DefaultSessionDuration = 24 * time.Hour

// Claims are the validated contents of a staff session token.
type Claims struct {
	Username  string
	Role      domain.Role
	JTI       uuid.UUID
	ExpiresAt time.Time
}

// Principal returns the caller identity carried by the claims.
func (c *Claims) Principal() *domain.Principal {
	return &domain.Principal{Username: c.Username, Role: c.Role}
}

// JWTManager issues and validates HS256 session tokens.
type JWTManager struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

// NewJWTManager creates a manager signing with secretKey. A zero ttl uses
// DefaultSessionDuration.
func NewJWTManager(secretKey string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return &JWTManager{
		secretKey: secretKey,
		ttl:       ttl,
		now:       time.Now,
	}
}

// TTL returns the session lifetime.
func (j *JWTManager) TTL() time.Duration {
	return j.ttl
}

// GenerateToken issues a session token for user.
func (j *JWTManager) GenerateToken(user *domain.User) (string, error) {
	if j.secretKey == "" {
		return "", fmt.Errorf("JWT secret key is empty")
	}

	now := j.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     string(user.Role),
		"jti":      uuid.New().String(),
		"exp":      now.Add(j.ttl).Unix(),
		"iat":      now.Unix(),
	})

	return token.SignedString([]byte(j.secretKey))
}

// ValidateToken checks the signature and expiry of tokenString.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("invalid username claim")
	}

	role, ok := claims["role"].(string)
	if !ok || (domain.Role(role) != domain.RoleAdmin && domain.Role(role) != domain.RoleKitchen) {
		return nil, fmt.Errorf("invalid role claim")
	}

	jtiStr, ok := claims["jti"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid jti claim")
	}

	jti, err := uuid.Parse(jtiStr)
	if err != nil {
		return nil, fmt.Errorf("invalid jti format")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("invalid exp claim")
	}

	return &Claims{
		Username:  username,
		Role:      domain.Role(role),
		JTI:       jti,
		ExpiresAt: exp.Time,
	}, nil
}
