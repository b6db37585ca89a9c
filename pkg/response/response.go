package response

// Stable machine-readable error codes. Clients key off these, the
// human-readable message is a convenience only.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeValidation     = "VALIDATION_ERROR"
	CodeAlreadyVoted   = "ALREADY_VOTED"
	CodePollNotActive  = "POLL_NOT_ACTIVE"
	CodeInvalidOption  = "INVALID_OPTION"
	CodePollHasVotes   = "POLL_HAS_VOTES"
	CodeEmptyComment   = "EMPTY_COMMENT"
	CodeCommentTooLong = "COMMENT_TOO_LONG"
	CodeConflict       = "CONFLICT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON error envelope returned by every handler.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is used for confirmations that carry no entity body.
type MessageResponse struct {
	Message string `json:"message"`
}

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}

func NewErrorWithDetails(code, message, details string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message, Details: details}
}
