package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"affection-tracker/internal/service"
)

// TokenHandler permite al host dar de baja sus propios tokens.
type TokenHandler struct {
	logger *zap.Logger
	tokens *service.HostTokenService
}

func NewTokenHandler(logger *zap.Logger, tokens *service.HostTokenService) *TokenHandler {
	return &TokenHandler{logger: logger, tokens: tokens}
}

// Revoke maneja POST /tokens/revoke.
// Sin body revoca el token de la llamada; con {"token": ...} revoca otro token del mismo host.
func (h *TokenHandler) Revoke(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid revoke request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	caller, ok := GetHostClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	target := strings.TrimSpace(req.Token)
	if target == "" {
		target = c.GetString(hostTokenKey)
	} else {
		claims, err := h.tokens.Parse(target)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
			return
		}
		if claims.HostID != caller.HostID {
			c.JSON(http.StatusForbidden, gin.H{"error": "token belongs to another host"})
			return
		}
	}

	if err := h.tokens.Revoke(target); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) || errors.Is(err, service.ErrTokenExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
			return
		}
		h.logger.Error("revoke token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke token"})
		return
	}
	h.logger.Info("host token revoked", zap.String("host_id", caller.HostID))
	c.Status(http.StatusNoContent)
}
