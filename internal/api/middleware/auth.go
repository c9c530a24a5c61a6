package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/agritrace/agritrace/internal/api/shared/errors"
	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	ACTOR_KEY      contextKey = "actor"
	JWT_CLAIMS_KEY contextKey = "jwt_claims"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
}

// ActorClaims are the JWT claims issued by the identity service. The subject
// is the actor's UUID and the role claim carries the supply-chain role.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success bool
	Actor   domain.Actor
	Claims  *ActorClaims
	Error   error
}

// Authenticate validates the Authorization header and returns the
// authenticated actor
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	result := AuthResult{
		Success: false,
	}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	// Parse the authorization header
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	claims, err := validateJWT(parts[1], cfg.JWTPublicKey)
	if err != nil {
		result.Error = err
		return result
	}

	actor := domain.Actor{
		ID:   claims.Subject,
		Role: domain.Role(claims.Role),
	}
	if !actor.Valid() {
		result.Error = fmt.Errorf("token carries an unknown role or malformed subject")
		return result
	}

	result.Success = true
	result.Actor = actor
	result.Claims = claims
	return result
}

// Auth returns a gin middleware that authenticates the request and stores
// the actor in the request context
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		result := Authenticate(authHeader, cfg)

		if !result.Success {
			logger.Warn("Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(string(ACTOR_KEY), result.Actor)
		c.Set(string(JWT_CLAIMS_KEY), result.Claims)

		logger.Debug("Authentication successful",
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("actor_id", result.Actor.ID),
			zap.String("role", string(result.Actor.Role)),
		)

		c.Next()
	}
}

// RequireRole returns a gin middleware that rejects authenticated actors
// whose role is not the required one. It must run after Auth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			apiErr := apierrors.NewUnauthorizedError("Authentication required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}
		if actor.Role != role {
			apiErr := apierrors.NewForbiddenError(fmt.Sprintf("Role %s is not permitted on this endpoint", actor.Role))
			c.AbortWithStatusJSON(http.StatusForbidden, apiErr)
			return
		}
		c.Next()
	}
}

// ActorFromContext retrieves the authenticated actor set by Auth
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(string(ACTOR_KEY))
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// validateJWT validates a JWT token with RSA signature and returns claims
func validateJWT(tokenString string, publicKeyPEM string) (*ActorClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	// Parse the RSA public key
	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	// Parse and validate the token with claims
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is RSA
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// Validate standard claims
	now := time.Now()

	// Check expiration
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return nil, errors.New("token has expired")
	}

	// Check not before
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return nil, errors.New("token not yet valid")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	// Try parsing as PKIX (most common format)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Try parsing as PKCS1 format
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}
