package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject, role string, expiry time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
		Role: role,
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	handlers := append([]gin.HandlerFunc{Middleware(testSecret, logger)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "role": Role(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_ValidToken(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, testSecret, "citizen-1", "citizen", time.Hour)

	w := doRequest(r, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "citizen-1")
}

func TestMiddleware_MissingHeader(t *testing.T) {
	r := newAuthRouter()

	w := doRequest(r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")
}

func TestMiddleware_WrongSecret(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, "other-secret", "citizen-1", "citizen", time.Hour)

	w := doRequest(r, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, testSecret, "citizen-1", "citizen", -time.Hour)

	w := doRequest(r, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_MissingSubject(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, testSecret, "", "citizen", time.Hour)

	w := doRequest(r, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token has no subject")
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter(RequireRole("citizen"))

	citizen := signToken(t, testSecret, "citizen-1", "citizen", time.Hour)
	w := doRequest(r, "Bearer "+citizen)
	assert.Equal(t, http.StatusOK, w.Code)

	electrician := signToken(t, testSecret, "electrician-1", "electrician", time.Hour)
	w = doRequest(r, "Bearer "+electrician)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient role")
}
