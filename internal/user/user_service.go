package user

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"poll-service/internal/poll"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrBioTooLong = errors.New("bio must be at most 200 characters")

// AvatarUploader stores an uploaded avatar image and returns its URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, userID string, file *multipart.FileHeader) (string, error)
}

type UserService struct {
	repo  UserRepository
	media AvatarUploader
}

func NewUserService(repo UserRepository, media AvatarUploader) *UserService {
	return &UserService{repo: repo, media: media}
}

func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*UserResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, req UpdateProfileRequest) (*UserResponse, error) {
	bio := strings.TrimSpace(req.Bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, ErrBioTooLong
	}

	fields := bson.M{
		"name":     strings.TrimSpace(req.Name),
		"bio":      bio,
		"location": strings.TrimSpace(req.Location),
		"website":  strings.TrimSpace(req.Website),
	}
	if req.Preferences != nil {
		fields["preferences"] = *req.Preferences
	}

	u, err := s.repo.UpdateProfile(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

func (s *UserService) GetStats(ctx context.Context, id primitive.ObjectID) (*Stats, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u.Stats, nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, id primitive.ObjectID, file *multipart.FileHeader) (*UserResponse, error) {
	if s.media == nil {
		return nil, errors.New("media storage is not configured")
	}
	url, err := s.media.UploadAvatar(ctx, id.Hex(), file)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.SetAvatar(ctx, id, url)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

/** ---------------- poll.UserDirectory ---------------- */

// Profiles resolves display identities for poll denormalization. Unknown
// ids simply stay absent from the map.
func (s *UserService) Profiles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]poll.Profile, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[primitive.ObjectID]poll.Profile, len(users))
	for _, u := range users {
		profiles[u.ID] = poll.Profile{Name: u.Name, Avatar: u.Avatar}
	}
	return profiles, nil
}

func (s *UserService) AddPollsCreated(ctx context.Context, userID primitive.ObjectID, delta int) error {
	return s.repo.IncPollsCreated(ctx, userID, delta)
}

func (s *UserService) AddVotesReceived(ctx context.Context, userID primitive.ObjectID, count int) error {
	return s.repo.IncVotesReceived(ctx, userID, count)
}
