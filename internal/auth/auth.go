// Package auth is the identity provider: it mints and validates the bearer
// tokens from which the current actor id is derived.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const actorKey = "actor_id"

type IdentityProvider struct {
	secret []byte
	ttl    time.Duration
}

func NewIdentityProvider(secret string, ttl time.Duration) *IdentityProvider {
	return &IdentityProvider{secret: []byte(secret), ttl: ttl}
}

// GenerateToken creates a signed token for an actor.
func (p *IdentityProvider) GenerateToken(actorID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": actorID,
		"exp": time.Now().Add(p.ttl).Unix(),
	})
	return token.SignedString(p.secret)
}

// ParseToken returns the actor id carried by a token.
func (p *IdentityProvider) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// Middleware resolves the current actor from the Authorization header and
// stores it on the request context.
func (p *IdentityProvider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		actorID, err := p.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(actorKey, actorID)
		c.Next()
	}
}

// ActorID returns the authenticated actor for the request, empty when the
// middleware did not run.
func ActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
