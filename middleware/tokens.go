package middleware

import (
	"os"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// GenerateAccessToken mints a short-lived token used on every request.
func GenerateAccessToken(userID string) (string, error) {
	return generateToken(userID, models.TokenTypeAccess, accessTokenTTL)
}

// GenerateRefreshToken mints the long-lived token exchanged at
// /auth/refresh-token.
func GenerateRefreshToken(userID string) (string, error) {
	return generateToken(userID, models.TokenTypeRefresh, refreshTokenTTL)
}

func generateToken(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
