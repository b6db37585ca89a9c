package poll

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxUpdateRetries bounds the optimistic-concurrency loop. Each retry
// re-reads the aggregate, so every business check is re-validated against
// the state that actually won the previous race.
const maxUpdateRetries = 5

const DefaultPageSize = 20

// Profile is the denormalized identity attached to poll and comment authors.
type Profile struct {
	Name   string
	Avatar string
}

// UserDirectory is what the poll service needs from the user feature:
// display identities for denormalization and best-effort stat updates.
type UserDirectory interface {
	Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Profile, error)
	AddPollsCreated(ctx context.Context, userID primitive.ObjectID, delta int) error
	AddVotesReceived(ctx context.Context, userID primitive.ObjectID, count int) error
}

type PollService struct {
	repo  PollRepository
	users UserDirectory
}

func NewPollService(repo PollRepository, users UserDirectory) *PollService {
	return &PollService{repo: repo, users: users}
}

type CreatePollInput struct {
	Question  string
	Options   []string
	ExpiresAt *time.Time
	Tags      []string
	ImageURL  string
}

func (s *PollService) Create(ctx context.Context, authorID primitive.ObjectID, input CreatePollInput) (*PollResponse, error) {
	p, err := New(authorID, input.Question, input.Options, input.ExpiresAt, input.Tags)
	if err != nil {
		return nil, err
	}
	p.Image = input.ImageURL

	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}

	// Denormalized author statistic, not transactional with the insert.
	if err := s.users.AddPollsCreated(ctx, authorID, 1); err != nil {
		slog.Warn("failed to update author poll count", "user", authorID.Hex(), "error", err)
	}

	return s.respond(ctx, p)
}

func (s *PollService) Get(ctx context.Context, pollID string) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, p)
}

func (s *PollService) ListActive(ctx context.Context, page, limit int) (*PagedPollsResponse, error) {
	page, limit = normalizePage(page, limit)
	polls, total, err := s.repo.ListActive(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return s.paged(ctx, polls, total, page, limit)
}

func (s *PollService) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, page, limit int) (*PagedPollsResponse, error) {
	page, limit = normalizePage(page, limit)
	polls, total, err := s.repo.ListByAuthor(ctx, authorID, page, limit)
	if err != nil {
		return nil, err
	}
	return s.paged(ctx, polls, total, page, limit)
}

// Vote casts a single vote for userID. The voter-set membership check and
// the counter increments commit through one version-checked write, so two
// concurrent votes from the same user cannot both land.
func (s *PollService) Vote(ctx context.Context, pollID string, userID primitive.ObjectID, optionIndex int) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := p.CastVote(userID, optionIndex); err != nil {
			return nil, err
		}

		ok, err := s.repo.Update(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if err := s.users.AddVotesReceived(ctx, p.Author, 1); err != nil {
			slog.Warn("failed to update author vote stats", "poll", p.ID.Hex(), "error", err)
		}
		return s.respond(ctx, p)
	}
	return nil, ErrConcurrentUpdate
}

func (s *PollService) ToggleLike(ctx context.Context, pollID string, userID primitive.ObjectID) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		p.ToggleLike(userID)

		ok, err := s.repo.Update(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.respond(ctx, p)
		}
	}
	return nil, ErrConcurrentUpdate
}

func (s *PollService) AddComment(ctx context.Context, pollID string, authorID primitive.ObjectID, text string) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := p.AddComment(authorID, text); err != nil {
			return nil, err
		}

		ok, err := s.repo.Update(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.respond(ctx, p)
		}
	}
	return nil, ErrConcurrentUpdate
}

func (s *PollService) RemoveComment(ctx context.Context, pollID, commentID string, requesterID primitive.ObjectID) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}
	cid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := p.RemoveComment(cid, requesterID); err != nil {
			return nil, err
		}

		ok, err := s.repo.Update(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.respond(ctx, p)
		}
	}
	return nil, ErrConcurrentUpdate
}

type EditPollInput struct {
	Question string
	Options  []string
	ImageURL *string
}

func (s *PollService) Edit(ctx context.Context, pollID string, requesterID primitive.ObjectID, input EditPollInput) (*PollResponse, error) {
	id, err := parsePollID(pollID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := p.ApplyEdit(requesterID, input.Question, input.Options); err != nil {
			return nil, err
		}
		if input.ImageURL != nil {
			p.Image = *input.ImageURL
		}

		ok, err := s.repo.Update(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.respond(ctx, p)
		}
	}
	return nil, ErrConcurrentUpdate
}

// Delete removes the poll when the requester is its author. The combined
// not-found filter avoids leaking whether a foreign poll exists.
func (s *PollService) Delete(ctx context.Context, pollID string, requesterID primitive.ObjectID) error {
	id, err := parsePollID(pollID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, requesterID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPollNotFound
	}

	if err := s.users.AddPollsCreated(ctx, requesterID, -1); err != nil {
		slog.Warn("failed to update author poll count", "user", requesterID.Hex(), "error", err)
	}
	return nil
}

func parsePollID(pollID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(pollID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidPollID
	}
	return id, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = DefaultPageSize
	}
	return page, limit
}

func (s *PollService) paged(ctx context.Context, polls []*Poll, total int64, page, limit int) (*PagedPollsResponse, error) {
	responses, err := s.respondMany(ctx, polls)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &PagedPollsResponse{
		Polls:       responses,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalPolls:  total,
	}, nil
}

func (s *PollService) respond(ctx context.Context, p *Poll) (*PollResponse, error) {
	responses, err := s.respondMany(ctx, []*Poll{p})
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

// respondMany resolves author identities for a batch of polls in one
// directory lookup and builds the denormalized representations.
func (s *PollService) respondMany(ctx context.Context, polls []*Poll) ([]*PollResponse, error) {
	idSet := make(map[primitive.ObjectID]bool)
	for _, p := range polls {
		idSet[p.Author] = true
		for _, c := range p.Comments {
			idSet[c.Author] = true
		}
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	profiles, err := s.users.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*PollResponse, 0, len(polls))
	for _, p := range polls {
		responses = append(responses, buildResponse(p, profiles))
	}
	return responses, nil
}

func buildResponse(p *Poll, profiles map[primitive.ObjectID]Profile) *PollResponse {
	resp := &PollResponse{
		ID:            p.ID.Hex(),
		Question:      p.Question,
		Options:       p.Options,
		Author:        authorRef(p.Author, profiles),
		TotalVotes:    p.TotalVotes,
		IsActive:      p.IsActive,
		IsExpired:     p.IsExpired(),
		ExpiresAt:     p.ExpiresAt,
		Tags:          p.Tags,
		Image:         p.Image,
		Voters:        hexIDs(p.Voters),
		Likes:         hexIDs(p.Likes),
		Comments:      make([]CommentResponse, 0, len(p.Comments)),
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, c := range p.Comments {
		resp.Comments = append(resp.Comments, CommentResponse{
			ID:        c.ID.Hex(),
			Text:      c.Text,
			Author:    authorRef(c.Author, profiles),
			CreatedAt: c.CreatedAt,
		})
	}
	return resp
}

func authorRef(id primitive.ObjectID, profiles map[primitive.ObjectID]Profile) AuthorRef {
	profile := profiles[id]
	return AuthorRef{ID: id.Hex(), Name: profile.Name, Avatar: profile.Avatar}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
