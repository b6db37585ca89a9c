package auth

import (
	"errors"
	"net/http"

	"poll-service/configs/utils"
	"poll-service/internal/user"
	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service *AuthService
}

func NewAuthHandler(service *AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.RegisterRequest true "Registration data"
// @Success 201 {object} user.UserResponse "Created user"
// @Failure 400 {object} response.ErrorResponse "Validation error"
// @Failure 409 {object} response.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "invalid request body", err.Error()))
		return
	}

	created, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, response.NewError(response.CodeConflict, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.NewErrorWithDetails(response.CodeInternal, "internal server error", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.LoginRequest true "Credentials"
// @Success 200 {object} auth.LoginResponse "Bearer token and profile"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "invalid request body", err.Error()))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.NewErrorWithDetails(response.CodeInternal, "internal server error", err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me godoc
// @Summary Get the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} user.UserResponse "Profile"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, response.NewError(response.CodeNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.NewErrorWithDetails(response.CodeInternal, "internal server error", err.Error()))
		return
	}
	c.JSON(http.StatusOK, profile)
}
