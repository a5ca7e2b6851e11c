package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"affection-tracker/internal/domain"
	"affection-tracker/internal/service"
)

// TurnHandler expone el ciclo por turno al runtime del host.
type TurnHandler struct {
	logger *zap.Logger
	turns  *service.TurnService
}

func NewTurnHandler(logger *zap.Logger, turns *service.TurnService) *TurnHandler {
	return &TurnHandler{logger: logger, turns: turns}
}

type counterpartRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

// OpenSession maneja POST /sessions.
func (h *TurnHandler) OpenSession(c *gin.Context) {
	var req struct {
		ID           string               `json:"id"`
		SubjectIDs   []string             `json:"subject_ids"`
		Counterparts []counterpartRequest `json:"counterparts" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid open session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if claims, ok := GetHostClaims(c); ok && claims.SessionID != "" {
		if req.ID == "" {
			req.ID = claims.SessionID
		}
		if !claims.AllowsSession(req.ID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for session"})
			return
		}
	}

	counterparts := make([]domain.Counterpart, 0, len(req.Counterparts))
	for _, cp := range req.Counterparts {
		counterparts = append(counterparts, domain.Counterpart{ID: cp.ID, Name: cp.Name})
	}

	view, err := h.turns.OpenSession(c.Request.Context(), req.ID, req.SubjectIDs, counterparts)
	if err != nil {
		h.logger.Error("open session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": view})
}

// GetSession maneja GET /sessions/:id.
func (h *TurnHandler) GetSession(c *gin.Context) {
	view, err := h.turns.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeSessionError(c, "get session failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": view})
}

// PostTurn maneja POST /sessions/:id/turns: el mensaje de una contraparte ya generado.
func (h *TurnHandler) PostTurn(c *gin.Context) {
	var req struct {
		MessageID    string                `json:"message_id"`
		SubjectID    string                `json:"subject_id"`
		AnonymizedID string                `json:"anonymized_id"`
		Name         string                `json:"name"`
		Role         string                `json:"role"`
		Metadata     map[string]string     `json:"metadata"`
		Content      string                `json:"content"`
		TurnSeq      int64                 `json:"turn_seq"`
		Affection    domain.AffectionState `json:"affection"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post turn request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg := domain.TurnMessage{
		ID:           req.MessageID,
		SessionID:    c.Param("id"),
		SubjectID:    req.SubjectID,
		AnonymizedID: req.AnonymizedID,
		Name:         req.Name,
		Role:         req.Role,
		Metadata:     req.Metadata,
		Content:      req.Content,
		TurnSeq:      req.TurnSeq,
		CreatedAt:    time.Now().UTC(),
	}

	outcome, err := h.turns.AfterResponse(c.Request.Context(), msg, req.Affection)
	if err != nil {
		h.writeSessionError(c, "post turn failed", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ListTurns maneja GET /sessions/:id/turns?limit=N con el historial de reportes.
func (h *TurnHandler) ListTurns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	reports, err := h.turns.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeSessionError(c, "list turns failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": reports})
}

// GetDirectives maneja GET /sessions/:id/directives, llamado antes de generar.
func (h *TurnHandler) GetDirectives(c *gin.Context) {
	out, err := h.turns.BeforePrompt(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeSessionError(c, "build directives failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetAffection maneja GET /sessions/:id/affection.
func (h *TurnHandler) GetAffection(c *gin.Context) {
	view, err := h.turns.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeSessionError(c, "get affection failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affection": view.Affection})
}

// PutAffection maneja PUT /sessions/:id/affection con el mapa autoritativo del host.
func (h *TurnHandler) PutAffection(c *gin.Context) {
	var req struct {
		Affection domain.AffectionState `json:"affection" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid put affection request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	state, err := h.turns.SetState(c.Request.Context(), c.Param("id"), req.Affection)
	if err != nil {
		h.writeSessionError(c, "set affection failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affection": state})
}

func (h *TurnHandler) writeSessionError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrTurnInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, service.ErrTurnHistoryNotConfigured):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "turn history disabled"})
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("session_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
