package poll

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"poll-service/configs/utils"
	"poll-service/internal/storage"
	"poll-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// MediaUploader stores an uploaded poll image and returns its URL.
type MediaUploader interface {
	UploadPollImage(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type PollHandler struct {
	service *PollService
	media   MediaUploader
}

func NewPollHandler(service *PollService, media MediaUploader) *PollHandler {
	return &PollHandler{service: service, media: media}
}

// ListPolls godoc
// @Summary List active polls
// @Description Get all active polls, newest first (paginated)
// @Tags polls
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} poll.PagedPollsResponse "Paginated polls"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /polls [get]
func (h *PollHandler) ListPolls(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", DefaultPageSize)

	polls, err := h.service.ListActive(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

// GetPoll godoc
// @Summary Get a single poll
// @Tags polls
// @Produce json
// @Param id path string true "Poll ID"
// @Success 200 {object} poll.PollResponse "Poll"
// @Failure 404 {object} response.ErrorResponse "Poll not found"
// @Router /polls/{id} [get]
func (h *PollHandler) GetPoll(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetMyPolls godoc
// @Summary List the authenticated user's polls
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} poll.PagedPollsResponse "Paginated polls"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /users/polls [get]
func (h *PollHandler) GetMyPolls(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	polls, err := h.service.ListByAuthor(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

// CreatePoll godoc
// @Summary Create a poll
// @Description Create a poll with 2-4 options and an optional image. Accepts JSON or multipart form data.
// @Tags polls
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param request body poll.CreatePollRequest true "Poll data"
// @Success 201 {object} poll.PollResponse "Created poll"
// @Failure 400 {object} response.ErrorResponse "Validation error"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /polls [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	input, fileHeader, err := h.bindPollInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "invalid request body", err.Error()))
		return
	}

	if fileHeader != nil {
		url, err := h.uploadImage(c, fileHeader)
		if err != nil {
			h.fail(c, err)
			return
		}
		input.ImageURL = url
	}

	p, err := h.service.Create(c.Request.Context(), userID, *input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Vote godoc
// @Summary Vote on a poll
// @Description Cast a single vote for one option. A user can vote at most once per poll.
// @Tags polls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Param request body poll.VoteRequest true "Option index"
// @Success 200 {object} poll.PollResponse "Updated poll"
// @Failure 400 {object} response.ErrorResponse "Invalid option or inactive poll"
// @Failure 404 {object} response.ErrorResponse "Poll not found"
// @Failure 409 {object} response.ErrorResponse "Already voted"
// @Router /polls/{id}/vote [post]
func (h *PollHandler) Vote(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "optionIndex is required", err.Error()))
		return
	}

	p, err := h.service.Vote(c.Request.Context(), c.Param("id"), userID, *req.OptionIndex)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ToggleLike godoc
// @Summary Like or unlike a poll
// @Description Toggle the authenticated user's like. Repeated calls alternate state.
// @Tags polls
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Success 200 {object} poll.PollResponse "Updated poll"
// @Failure 404 {object} response.ErrorResponse "Poll not found"
// @Router /polls/{id}/like [post]
func (h *PollHandler) ToggleLike(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.service.ToggleLike(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AddComment godoc
// @Summary Comment on a poll
// @Tags polls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Param request body poll.AddCommentRequest true "Comment text"
// @Success 200 {object} poll.PollResponse "Updated poll"
// @Failure 400 {object} response.ErrorResponse "Empty or too long comment"
// @Failure 404 {object} response.ErrorResponse "Poll not found"
// @Router /polls/{id}/comment [post]
func (h *PollHandler) AddComment(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "text is required", err.Error()))
		return
	}

	p, err := h.service.AddComment(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RemoveComment godoc
// @Summary Delete a comment
// @Description Delete the requester's own comment from a poll.
// @Tags polls
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} poll.PollResponse "Updated poll"
// @Failure 404 {object} response.ErrorResponse "Comment not found or unauthorized"
// @Router /polls/{id}/comments/{commentId} [delete]
func (h *PollHandler) RemoveComment(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.service.RemoveComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePoll godoc
// @Summary Edit a poll
// @Description Authors can change the question at any time; options only before the first vote. Replacing options resets all vote counts.
// @Tags polls
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Param request body poll.UpdatePollRequest true "Fields to update"
// @Success 200 {object} poll.PollResponse "Updated poll"
// @Failure 403 {object} response.ErrorResponse "Not the author"
// @Failure 409 {object} response.ErrorResponse "Poll already has votes"
// @Router /polls/{id} [put]
func (h *PollHandler) UpdatePoll(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	input, fileHeader, err := h.bindEditInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorWithDetails(response.CodeValidation, "invalid request body", err.Error()))
		return
	}

	if fileHeader != nil {
		url, err := h.uploadImage(c, fileHeader)
		if err != nil {
			h.fail(c, err)
			return
		}
		input.ImageURL = &url
	}

	p, err := h.service.Edit(c.Request.Context(), c.Param("id"), userID, *input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePoll godoc
// @Summary Delete a poll
// @Tags polls
// @Produce json
// @Security BearerAuth
// @Param id path string true "Poll ID"
// @Success 200 {object} response.MessageResponse "Confirmation"
// @Failure 404 {object} response.ErrorResponse "Poll not found or not the author"
// @Router /polls/{id} [delete]
func (h *PollHandler) DeletePoll(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.NewError(response.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.MessageResponse{Message: "Poll deleted successfully"})
}

// bindPollInput accepts either a JSON body or a multipart form (the shape
// the web client sends when an image is attached).
func (h *PollHandler) bindPollInput(c *gin.Context) (*CreatePollInput, *multipart.FileHeader, error) {
	if !isForm(c) {
		var req CreatePollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, err
		}
		return &CreatePollInput{
			Question:  req.Question,
			Options:   req.Options,
			ExpiresAt: req.ExpiresAt,
			Tags:      req.Tags,
		}, nil, nil
	}

	input := &CreatePollInput{
		Question: c.PostForm("question"),
		Options:  c.PostFormArray("options"),
		Tags:     c.PostFormArray("tags"),
	}
	if raw := c.PostForm("expiresAt"); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, err
		}
		input.ExpiresAt = &expiresAt
	}

	fileHeader, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return nil, nil, err
	}
	return input, fileHeader, nil
}

func (h *PollHandler) bindEditInput(c *gin.Context) (*EditPollInput, *multipart.FileHeader, error) {
	if !isForm(c) {
		var req UpdatePollRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, err
		}
		return &EditPollInput{Question: req.Question, Options: req.Options}, nil, nil
	}

	input := &EditPollInput{Question: c.PostForm("question")}
	if options := c.PostFormArray("options"); len(options) > 0 {
		input.Options = options
	}

	fileHeader, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return nil, nil, err
	}
	return input, fileHeader, nil
}

func (h *PollHandler) uploadImage(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	if h.media == nil {
		return "", errors.New("media storage is not configured")
	}
	return h.media.UploadPollImage(c.Request.Context(), fileHeader)
}

func isForm(c *gin.Context) bool {
	contentType := c.ContentType()
	return strings.HasPrefix(contentType, "multipart/form-data") ||
		contentType == "application/x-www-form-urlencoded"
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// fail maps domain errors to HTTP statuses and stable machine codes.
func (h *PollHandler) fail(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, response.CodeInternal
	switch {
	case errors.Is(err, ErrPollNotFound), errors.Is(err, ErrInvalidPollID):
		status, code = http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, ErrCommentNotFound):
		status, code = http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, ErrForbidden):
		status, code = http.StatusForbidden, response.CodeForbidden
	case errors.Is(err, ErrAlreadyVoted):
		status, code = http.StatusConflict, response.CodeAlreadyVoted
	case errors.Is(err, ErrPollHasVotes):
		status, code = http.StatusConflict, response.CodePollHasVotes
	case errors.Is(err, ErrConcurrentUpdate):
		status, code = http.StatusConflict, response.CodeConflict
	case errors.Is(err, ErrPollNotActive):
		status, code = http.StatusBadRequest, response.CodePollNotActive
	case errors.Is(err, ErrInvalidOption):
		status, code = http.StatusBadRequest, response.CodeInvalidOption
	case errors.Is(err, ErrEmptyComment):
		status, code = http.StatusBadRequest, response.CodeEmptyComment
	case errors.Is(err, ErrCommentTooLong):
		status, code = http.StatusBadRequest, response.CodeCommentTooLong
	case errors.Is(err, ErrInvalidQuestion), errors.Is(err, ErrInvalidOptionCount),
		errors.Is(err, ErrEmptyOption), errors.Is(err, ErrDuplicateOptions),
		errors.Is(err, ErrMalformedOptions):
		status, code = http.StatusBadRequest, response.CodeValidation
	case errors.Is(err, storage.ErrNotImage), errors.Is(err, storage.ErrFileTooLarge):
		status, code = http.StatusBadRequest, response.CodeValidation
	}

	if status == http.StatusInternalServerError {
		c.JSON(status, response.NewErrorWithDetails(code, "internal server error", err.Error()))
		return
	}
	c.JSON(status, response.NewError(code, err.Error()))
}
