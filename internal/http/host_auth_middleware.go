package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"affection-tracker/internal/service"
)

const (
	hostClaimsKey = "host_claims"
	hostTokenKey  = "host_token"
)

// HostAuthMiddleware valida el bearer token del host y el alcance de sesion.
func HostAuthMiddleware(tokens *service.HostTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokens.Parse(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, service.ErrTokenExpired) {
				msg = "token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		if id := c.Param("id"); id != "" && !claims.AllowsSession(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for session"})
			c.Abort()
			return
		}

		c.Set(hostClaimsKey, claims)
		c.Set(hostTokenKey, token)
		c.Next()
	}
}

// GetHostClaims obtiene los claims del host desde el contexto.
func GetHostClaims(c *gin.Context) (service.HostClaims, bool) {
	val, ok := c.Get(hostClaimsKey)
	if !ok {
		return service.HostClaims{}, false
	}
	claims, ok := val.(service.HostClaims)
	return claims, ok
}
