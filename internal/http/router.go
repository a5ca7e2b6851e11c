package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"affection-tracker/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// tokens nil deja las rutas de sesion sin autenticacion (modo local).
func NewRouter(
	logger *zap.Logger,
	turnH *TurnHandler,
	tokens *service.HostTokenService,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := r.Group("/sessions")
	if tokens != nil {
		sessions.Use(HostAuthMiddleware(tokens))
	}
	sessions.POST("", turnH.OpenSession)
	sessions.GET("/:id", turnH.GetSession)
	sessions.POST("/:id/turns", turnH.PostTurn)
	sessions.GET("/:id/turns", turnH.ListTurns)
	sessions.GET("/:id/directives", turnH.GetDirectives)
	sessions.GET("/:id/affection", turnH.GetAffection)
	sessions.PUT("/:id/affection", turnH.PutAffection)

	if tokens != nil {
		tokenH := NewTokenHandler(logger, tokens)
		r.POST("/tokens/revoke", HostAuthMiddleware(tokens), tokenH.Revoke)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
