package user

import (
	"errors"
	"net/http"

	"poll-service/configs/utils"
	"poll-service/internal/storage"
	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *UserService
}

func NewUserHandler(service *UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile godoc
// @Summary Get the authenticated user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} user.UserResponse "Profile"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the authenticated user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body user.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} user.UserResponse "Updated profile"
// @Failure 400 {object} response.ErrorResponse "Validation error"
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "invalid request body", err.Error()))
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetStats godoc
// @Summary Get the authenticated user's statistics
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} user.Stats "Stats"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /users/stats [get]
func (h *UserHandler) GetStats(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UploadAvatar godoc
// @Summary Upload a new avatar
// @Tags users
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} user.UserResponse "Updated profile"
// @Failure 400 {object} response.ErrorResponse "Invalid file"
// @Router /users/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.CodeValidation, "avatar file is required"))
		return
	}

	profile, err := h.service.UpdateAvatar(c.Request.Context(), userID, fileHeader)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.NewError(response.CodeNotFound, err.Error()))
	case errors.Is(err, ErrBioTooLong),
		errors.Is(err, storage.ErrNotImage),
		errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, response.NewError(response.CodeValidation, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.NewErrorWithDetails(response.CodeInternal, "internal server error", err.Error()))
	}
}
