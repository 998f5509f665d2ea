package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "zkpoker-client/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	ContextAddressKey = "address"
	ContextScopeKey   = "scope"
)

// AuthRequired admits any valid bridge token, player or spectator.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextAddressKey, claims.Address)
		c.Set(ContextScopeKey, claims.Scope)
		c.Next()
	}
}

// PlayerRequired admits only tokens allowed to submit transactions.
func PlayerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParsePlayerToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "player token required"})
			return
		}

		c.Set(ContextAddressKey, claims.Address)
		c.Set(ContextScopeKey, claims.Scope)
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
