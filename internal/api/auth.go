package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"companion-chat/backend/internal/models"
	"companion-chat/backend/internal/service"
	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Accounts is what the auth handler needs from the user service
type Accounts interface {
	CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, string, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts Accounts
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Accounts, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	user, token, err := h.accounts.CreateUser(c.Request.Context(), &req)
	if err != nil {
		if stderrors.Is(err, service.ErrUserAlreadyExists) {
			c.Error(errors.NewConflictError(errors.CodeEmailTaken, "A user with this email already exists"))
			return
		}
		c.Error(errors.NewInternalServerError(errors.CodeInternal, "Failed to create user account").WithCause(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  user.ToResponse(),
		"token": token,
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	user, token, err := h.accounts.Login(c.Request.Context(), &req)
	if err != nil {
		if stderrors.Is(err, service.ErrInvalidCredentials) {
			c.Error(errors.NewUnauthorizedError(errors.CodeBadCredentials, "Invalid email or password"))
			return
		}
		c.Error(errors.NewInternalServerError(errors.CodeInternal, "An error occurred during login").WithCause(err))
		return
	}

	logger.FromGin(c).Info("User logged in", "user_id", user.ID)

	c.JSON(http.StatusOK, gin.H{
		"user":  user.ToResponse(),
		"token": token,
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	id, err := strconv.ParseUint(c.GetString("userId"), 10, 64)
	if err != nil {
		c.Error(errors.NewUnauthorizedError(errors.CodeAuthRequired, "Authentication required"))
		return
	}

	user, err := h.accounts.GetUserByID(c.Request.Context(), uint(id))
	if err != nil {
		if stderrors.Is(err, service.ErrUserNotFound) {
			c.Error(errors.NewNotFoundError(errors.CodeNotFound, "User not found"))
			return
		}
		c.Error(errors.NewInternalServerError(errors.CodeInternal, "Failed to retrieve user").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}
