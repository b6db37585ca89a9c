package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"poll-service/internal/user"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already registered")
)

type AuthService struct {
	users     user.UserRepository
	jwtSecret string
	jwtExpire time.Duration
}

func NewAuthService(users user.UserRepository, secret string, expire time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: secret,
		jwtExpire: expire,
	}
}

// Register handles user registration
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*user.UserResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    string(hashedPassword),
		Bio:         user.DefaultBio,
		Preferences: user.DefaultPreferences(),
		Stats:       user.Stats{LastActive: now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.users.Insert(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return u.ToResponse(), nil
}

// Login handles user authentication
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, u.ID); err != nil {
		return nil, err
	}

	token, err := s.signToken(u)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token: token,
		User:  u.ToResponse(),
	}, nil
}

// Me resolves the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*user.UserResponse, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.ToResponse(), nil
}

// signToken issues a bearer token carrying the denormalized identity the
// frontend renders without an extra profile round trip.
func (s *AuthService) signToken(u *user.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":     u.ID.Hex(),
		"name":   u.Name,
		"email":  u.Email,
		"avatar": u.Avatar,
		"exp":    time.Now().Add(s.jwtExpire).Unix(),
	})
	return token.SignedString([]byte(s.jwtSecret))
}
