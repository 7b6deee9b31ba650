package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legiseye/internal/app"
	"legiseye/internal/model"
	"legiseye/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest accepts the account's username or email in Identifier.
// Username and Email are accepted as aliases.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"max=128"`
	Username   string `json:"username" binding:"max=128"`
	Email      string `json:"email" binding:"max=128"`
	Password   string `json:"password" binding:"required,max=128"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Language    *string `json:"language" binding:"omitempty,max=8"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.FromError(c, err, "register failed")
		return
	}
	response.Created(c, authResponse{Token: result.Token, User: result.User})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		identifier = req.Email
	}
	result, err := h.authService.Login(app.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
	})
	if err != nil {
		response.FromError(c, err, "login failed")
		return
	}
	response.OK(c, authResponse{Token: result.Token, User: result.User})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if errors.Is(err, app.ErrUserNotFound) {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}
	if err != nil {
		response.FromError(c, err, "fetch current user failed")
		return
	}
	response.OK(c, user)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(userID, app.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Language:    req.Language,
	})
	if err != nil {
		response.FromError(c, err, "update profile failed")
		return
	}
	response.OK(c, user)
}
