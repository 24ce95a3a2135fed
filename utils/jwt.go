package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrTokenBlacklisted = errors.New("token has been revoked")
)

type CustomClaims struct {
	UserID       string `json:"user_id"`
	RestaurantID string `json:"restaurant_id"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates owner tokens. Revoked tokens are kept in
// the blacklist until they would have expired anyway.
type JWTManager struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	blacklist *TokenBlacklist
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{
		secret:    []byte(secret),
		ttl:       ttl,
		issuer:    "ReservationApp",
		blacklist: NewTokenBlacklist(),
	}
}

func (m *JWTManager) GenerateToken(userID, restaurantID string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:       userID,
		RestaurantID: restaurantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) ParseToken(tokenString string) (*CustomClaims, error) {
	if m.blacklist.Contains(tokenString) {
		return nil, ErrTokenBlacklisted
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke blacklists a token until its own expiry.
func (m *JWTManager) Revoke(tokenString string, claims *CustomClaims) {
	until := time.Now().Add(m.ttl)
	if claims != nil && claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	m.blacklist.Add(tokenString, until)
}
