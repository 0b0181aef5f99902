package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/pku-shop/internal/user/service"
)

// AuthHandler — HTTP обработчики регистрации и входа.
type AuthHandler struct {
	users service.UserService
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(users service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// registerRequest — тело запроса регистрации.
type registerRequest struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone"`
	DefaultAddress string `json:"default_address"`
}

// loginRequest — тело запроса входа.
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// refreshRequest — тело запроса обновления токенов.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// tokenResponse — ответ с парой токенов.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Register обрабатывает POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}

	user, tokens, err := h.users.Register(c.Request.Context(), service.RegisterRequest{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Phone:          req.Phone,
		DefaultAddress: req.DefaultAddress,
	})
	if err != nil {
		RespondError(c, err, "Register")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"tokens": tokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		},
	})
}

// Login обрабатывает POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}

	tokens, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, err, "Login")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
}

// Refresh обрабатывает POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Некорректное тело запроса",
		})
		return
	}

	tokens, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, err, "Refresh")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
}
