package poll

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

/** --------------------ENTITIES-------------------- */

const (
	MaxQuestionLength = 200
	MaxCommentLength  = 500
	MinOptions        = 2
	MaxOptions        = 4
)

// Option is owned by its poll and has no identity of its own.
type Option struct {
	Text  string `bson:"text" json:"text"`
	Votes int    `bson:"votes" json:"votes"`
}

// Comment is embedded in the poll document.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Poll is the aggregate root. All mutations go through its methods so that
// the derived counters (totalVotes, likesCount, commentsCount) are re-derived
// from their backing collections before every save.
type Poll struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Question      string               `bson:"question" json:"question"`
	Options       []Option             `bson:"options" json:"options"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	TotalVotes    int                  `bson:"totalVotes" json:"totalVotes"`
	IsActive      bool                 `bson:"isActive" json:"isActive"`
	ExpiresAt     *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Tags          []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	Image         string               `bson:"image,omitempty" json:"image,omitempty"`
	Voters        []primitive.ObjectID `bson:"voters" json:"voters"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments      []Comment            `bson:"comments" json:"comments"`
	LikesCount    int                  `bson:"likesCount" json:"likesCount"`
	CommentsCount int                  `bson:"commentsCount" json:"commentsCount"`
	Version       int64                `bson:"version" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// New builds a poll from already-validated author identity and raw user
// input. Question and options are validated and normalized here.
func New(author primitive.ObjectID, question string, options []string, expiresAt *time.Time, tags []string) (*Poll, error) {
	q, err := validateQuestion(question)
	if err != nil {
		return nil, err
	}
	opts, err := NormalizeOptions(options)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Poll{
		ID:        primitive.NewObjectID(),
		Question:  q,
		Author:    author,
		IsActive:  true,
		ExpiresAt: expiresAt,
		Tags:      normalizeTags(tags),
		Voters:    []primitive.ObjectID{},
		Likes:     []primitive.ObjectID{},
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Options = make([]Option, 0, len(opts))
	for _, text := range opts {
		p.Options = append(p.Options, Option{Text: text})
	}
	p.syncCounts()
	return p, nil
}

// IsExpired reports whether the poll has an expiry in the past.
func (p *Poll) IsExpired() bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(time.Now())
}

// IsActivePoll combines the active flag with expiry.
func (p *Poll) IsActivePoll() bool {
	return p.IsActive && !p.IsExpired()
}

func (p *Poll) HasVoted(userID primitive.ObjectID) bool {
	for _, v := range p.Voters {
		if v == userID {
			return true
		}
	}
	return false
}

func (p *Poll) HasLiked(userID primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l == userID {
			return true
		}
	}
	return false
}

// LeadingOption returns the index of the option with the most votes.
// Ties resolve to the lowest index. Returns -1 for an empty option list.
func (p *Poll) LeadingOption() int {
	leading := -1
	for i, opt := range p.Options {
		if leading == -1 || opt.Votes > p.Options[leading].Votes {
			leading = i
		}
	}
	return leading
}

// CastVote registers a single vote for userID on the given option. The
// membership check and the mutation happen on the same in-memory snapshot;
// the repository's version-checked write makes the pair atomic, so callers
// retry on a write conflict and the check is re-validated on a fresh read.
func (p *Poll) CastVote(userID primitive.ObjectID, optionIndex int) error {
	if !p.IsActivePoll() {
		return ErrPollNotActive
	}
	if p.HasVoted(userID) {
		return ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return ErrInvalidOption
	}

	p.Options[optionIndex].Votes++
	p.Voters = append(p.Voters, userID)
	p.syncCounts()
	return nil
}

// ToggleLike adds userID to the like set, or removes it if already present.
// Likes are allowed on inactive and expired polls.
func (p *Poll) ToggleLike(userID primitive.ObjectID) {
	for i, l := range p.Likes {
		if l == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			p.syncCounts()
			return
		}
	}
	p.Likes = append(p.Likes, userID)
	p.syncCounts()
}

// AddComment appends a comment with a fresh id and timestamp.
func (p *Poll) AddComment(author primitive.ObjectID, text string) (*Comment, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyComment
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	comment := Comment{
		ID:        primitive.NewObjectID(),
		Text:      trimmed,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	p.Comments = append(p.Comments, comment)
	p.syncCounts()
	return &comment, nil
}

// RemoveComment removes the comment only when it exists and belongs to the
// requester. A single combined error hides whether the comment exists at all.
func (p *Poll) RemoveComment(commentID, requesterID primitive.ObjectID) error {
	for i, c := range p.Comments {
		if c.ID == commentID && c.Author == requesterID {
			p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
			p.syncCounts()
			return nil
		}
	}
	return ErrCommentNotFound
}

// ApplyEdit replaces the question and/or options. Replacing options is only
// allowed before any vote has been cast and resets every vote counter.
func (p *Poll) ApplyEdit(requesterID primitive.ObjectID, question string, options []string) error {
	if p.Author != requesterID {
		return ErrForbidden
	}

	if question != "" {
		q, err := validateQuestion(question)
		if err != nil {
			return err
		}
		p.Question = q
	}

	if options != nil {
		if p.TotalVotes > 0 {
			return ErrPollHasVotes
		}
		opts, err := NormalizeOptions(options)
		if err != nil {
			return err
		}
		p.Options = make([]Option, 0, len(opts))
		for _, text := range opts {
			p.Options = append(p.Options, Option{Text: text})
		}
	}

	p.syncCounts()
	return nil
}

// syncCounts re-derives every counter from its backing collection. Every
// mutating method calls it before the aggregate is saved; counters are never
// incremented independently of the collections they summarize.
func (p *Poll) syncCounts() {
	total := 0
	for _, opt := range p.Options {
		total += opt.Votes
	}
	p.TotalVotes = total
	p.LikesCount = len(p.Likes)
	p.CommentsCount = len(p.Comments)
}

/** -------------------- INPUT NORMALIZATION -------------------- */

// NormalizeOptions turns raw option input into trimmed, validated option
// texts. A single element holding a JSON-encoded array (the shape multipart
// forms produce) is expanded first, so the aggregate never sees raw
// duck-typed input.
func NormalizeOptions(raw []string) ([]string, error) {
	if len(raw) == 1 && strings.HasPrefix(strings.TrimSpace(raw[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(raw[0]), &decoded); err != nil {
			return nil, ErrMalformedOptions
		}
		raw = decoded
	}

	opts := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, text := range raw {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, ErrEmptyOption
		}
		if seen[trimmed] {
			return nil, ErrDuplicateOptions
		}
		seen[trimmed] = true
		opts = append(opts, trimmed)
	}
	if len(opts) < MinOptions || len(opts) > MaxOptions {
		return nil, ErrInvalidOptionCount
	}
	return opts, nil
}

// OptionsInput accepts either a JSON array of strings or a JSON string
// holding an encoded array.
type OptionsInput []string

func (o *OptionsInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		data = []byte(encoded)
	}
	var opts []string
	if err := json.Unmarshal(data, &opts); err != nil {
		return ErrMalformedOptions
	}
	*o = opts
	return nil
}

func validateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxQuestionLength {
		return "", ErrInvalidQuestion
	}
	return trimmed, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

/** -------------------- DTOs -------------------- */

// Request
type CreatePollRequest struct {
	Question  string       `form:"question" json:"question" binding:"required"`
	Options   OptionsInput `form:"options" json:"options"`
	ExpiresAt *time.Time   `form:"expiresAt" json:"expiresAt" time_format:"2006-01-02T15:04:05Z07:00"`
	Tags      []string     `form:"tags" json:"tags"`
}

type UpdatePollRequest struct {
	Question string       `form:"question" json:"question"`
	Options  OptionsInput `form:"options" json:"options"`
}

type VoteRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required"`
}

type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// Response
type AuthorRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    AuthorRef `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type PollResponse struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	Options       []Option          `json:"options"`
	Author        AuthorRef         `json:"author"`
	TotalVotes    int               `json:"totalVotes"`
	IsActive      bool              `json:"isActive"`
	IsExpired     bool              `json:"isExpired"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Image         string            `json:"image,omitempty"`
	Voters        []string          `json:"voters"`
	Likes         []string          `json:"likes"`
	Comments      []CommentResponse `json:"comments"`
	LikesCount    int               `json:"likesCount"`
	CommentsCount int               `json:"commentsCount"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type PagedPollsResponse struct {
	Polls       []*PollResponse `json:"polls"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	TotalPolls  int64           `json:"totalPolls"`
}
