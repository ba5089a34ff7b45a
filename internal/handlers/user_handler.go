package handlers

import (
	"net/http"

	"go-erp-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Password string `json:"password" binding:"required,min=8,max=100,strongpassword"`
	Role     string `json:"role" binding:"omitempty,oneof=ADMIN USER admin user"`
}

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{users: svc}
}

// Register - POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterRequest
	if err := bindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterUserInput{
		Username: input.Username,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// DefaultUser - GET /api/users/defaultUser
func (h *UserHandler) DefaultUser(c *gin.Context) {
	present, err := h.users.IsDefaultUserPresent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"default_user_present": present})
}

// Delete - DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
