package handlers

import (
	"context"
	"net/http"

	"go-erp-backend/internal/apperror"

	"github.com/gin-gonic/gin"
)

// Asker answers a free-form question about the shop.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type AssistantHandler struct {
	agent Asker
}

// NewAssistantHandler accepts a nil agent, in which case every request is
// answered with 503.
func NewAssistantHandler(agent Asker) *AssistantHandler {
	return &AssistantHandler{agent: agent}
}

// Ask - POST /api/assistant/ask
func (h *AssistantHandler) Ask(c *gin.Context) {
	if h.agent == nil {
		respondError(c, apperror.ErrAssistantDisabled)
		return
	}
	var req AskRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	reply, err := h.agent.Ask(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
