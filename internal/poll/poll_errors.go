package poll

import "errors"

var (
	ErrPollNotFound       = errors.New("poll not found")
	ErrInvalidPollID      = errors.New("invalid poll id")
	ErrPollNotActive      = errors.New("poll is not active")
	ErrInvalidOption      = errors.New("invalid option index")
	ErrAlreadyVoted       = errors.New("you have already voted in this poll")
	ErrForbidden          = errors.New("not authorized to modify this poll")
	ErrPollHasVotes       = errors.New("options cannot be edited after voting has begun")
	ErrInvalidQuestion    = errors.New("question must be between 1 and 200 characters")
	ErrInvalidOptionCount = errors.New("polls require between 2 and 4 options")
	ErrEmptyOption        = errors.New("poll options cannot be empty")
	ErrDuplicateOptions   = errors.New("poll options must be unique")
	ErrMalformedOptions   = errors.New("options must be a list of strings")
	ErrEmptyComment       = errors.New("comment text is required")
	ErrCommentTooLong     = errors.New("comment must be at most 500 characters")
	ErrCommentNotFound    = errors.New("comment not found or unauthorized")
	ErrConcurrentUpdate   = errors.New("poll was modified concurrently")
)
