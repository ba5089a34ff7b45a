package handlers

import (
	"net/http"

	"go-erp-backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=100"`
}

// RefreshRequest carries the refresh token as "refreshToken". The snake_case
// key is still read for older clients.
type RefreshRequest struct {
	RefreshToken       string `json:"refreshToken"`
	LegacyRefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) token() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.LegacyRefreshToken
}

// AuthHandler serves the public token endpoints.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Login - POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginRequest
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// RefreshToken - POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var input RefreshRequest
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), input.token())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}
