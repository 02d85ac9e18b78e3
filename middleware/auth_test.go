package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateAccessToken("user-1")
	require.NoError(t, err)

	claims, err := ParseToken(token, models.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.TokenTypeAccess, claims.TokenType)
}

func TestParseToken_RejectsWrongType(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	refresh, err := GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = ParseToken(refresh, models.TokenTypeAccess)
	require.Error(t, err)
}

func TestParseToken_RejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	expired, err := generateToken("user-1", models.TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(expired, models.TokenTypeAccess)
	require.Error(t, err)
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := GenerateAccessToken("user-1")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = ParseToken(token, models.TokenTypeAccess)
	require.Error(t, err)
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware, func(c *gin.Context) {
		claims := c.MustGet("user").(*models.Claims)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return router
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authTestRouter()

	token, err := GenerateAccessToken("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_TokenQueryFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authTestRouter()

	token, err := GenerateAccessToken("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
