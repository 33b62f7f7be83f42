package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers malformed, mis-signed and expired tokens. A
// connection rejected with it must re-authenticate before retrying.
var ErrInvalidToken = errors.New("invalid or expired auth token")

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secretKey []byte
}

func NewTokenService(secretKey string) *TokenService {
	return &TokenService{secretKey: []byte(secretKey)}
}

// GenerateToken issues a signed token for a user, used by tests and the
// surrounding product's login flow.
func (s *TokenService) GenerateToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the authenticated userID or ErrInvalidToken.
func (s *TokenService) ValidateToken(tokenString string) (uuid.UUID, error) {
	userID, _, err := s.ValidateTokenWithExpiry(tokenString)
	return userID, err
}

// ValidateTokenWithExpiry additionally reports when the token stops
// being valid, for callers that keep a session open past one request.
func (s *TokenService) ValidateTokenWithExpiry(tokenString string) (uuid.UUID, time.Time, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, time.Time{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return uuid.Nil, time.Time{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, time.Time{}, ErrInvalidToken
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return userID, expiresAt, nil
}
