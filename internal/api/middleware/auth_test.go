package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/logger"
)

var (
	testPrivateKey *rsa.PrivateKey
	testPublicPEM  string
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	testPrivateKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&testPrivateKey.PublicKey)
	if err != nil {
		panic(err)
	}
	testPublicPEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	}))

	code := m.Run()
	os.Exit(code)
}

func signToken(t *testing.T, claims ActorClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(testPrivateKey)
	require.NoError(t, err)
	return signed
}

func validClaims(role domain.Role) ActorClaims {
	return ActorClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestAuthenticate(t *testing.T) {
	cfg := AuthConfig{JWTPublicKey: testPublicPEM}

	t.Run("accepts a valid bearer token", func(t *testing.T) {
		claims := validClaims(domain.RoleBroker)
		result := Authenticate("Bearer "+signToken(t, claims), cfg)

		require.True(t, result.Success)
		assert.Equal(t, claims.Subject, result.Actor.ID)
		assert.Equal(t, domain.RoleBroker, result.Actor.Role)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		result := Authenticate("", cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		result := Authenticate("Bearer", cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects non-bearer schemes", func(t *testing.T) {
		result := Authenticate("Basic dXNlcjpwYXNz", cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		claims := validClaims(domain.RoleBroker)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		result := Authenticate("Bearer "+signToken(t, claims), cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		claims := validClaims(domain.RoleBroker)
		claims.Role = "auditor"

		result := Authenticate("Bearer "+signToken(t, claims), cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects non-uuid subjects", func(t *testing.T) {
		claims := validClaims(domain.RoleBroker)
		claims.Subject = "someone"

		result := Authenticate("Bearer "+signToken(t, claims), cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects tokens signed with the wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(domain.RoleBroker))
		signed, err := token.SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		result := Authenticate("Bearer "+signed, cfg)
		assert.False(t, result.Success)
	})

	t.Run("rejects everything when no public key is configured", func(t *testing.T) {
		result := Authenticate("Bearer "+signToken(t, validClaims(domain.RoleBroker)), AuthConfig{})
		assert.False(t, result.Success)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := AuthConfig{JWTPublicKey: testPublicPEM}

	newRouter := func(extra ...gin.HandlerFunc) *gin.Engine {
		router := gin.New()
		handlers := append([]gin.HandlerFunc{Auth(cfg)}, extra...)
		handlers = append(handlers, func(c *gin.Context) {
			actor, ok := ActorFromContext(c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{"actor_id": actor.ID, "role": string(actor.Role)})
		})
		router.GET("/protected", handlers...)
		return router
	}

	t.Run("passes the actor through to the handler", func(t *testing.T) {
		router := newRouter()
		claims := validClaims(domain.RoleRetailer)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), claims.Subject)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		router := newRouter()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RequireRole admits the matching role", func(t *testing.T) {
		router := newRouter(RequireRole(domain.RoleFarmer))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(domain.RoleFarmer)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RequireRole rejects other roles", func(t *testing.T) {
		router := newRouter(RequireRole(domain.RoleFarmer))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(domain.RoleBroker)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
