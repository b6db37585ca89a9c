package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

/** --------------------ENTITIES-------------------- */

const MaxBioLength = 200

const DefaultBio = "Poll enthusiast and community contributor"

type Preferences struct {
	EmailNotifications bool `bson:"emailNotifications" json:"emailNotifications"`
	PublicProfile      bool `bson:"publicProfile" json:"publicProfile"`
	PushNotifications  bool `bson:"pushNotifications" json:"pushNotifications"`
	ShowEmail          bool `bson:"showEmail" json:"showEmail"`
	AllowMessages      bool `bson:"allowMessages" json:"allowMessages"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		PublicProfile:      true,
		PushNotifications:  true,
		ShowEmail:          false,
		AllowMessages:      true,
	}
}

// Stats are denormalized counters, updated best-effort alongside poll
// mutations. They may lag the poll collection briefly but never corrupt it.
type Stats struct {
	TotalPollsCreated  int       `bson:"totalPollsCreated" json:"totalPollsCreated"`
	TotalVotesReceived int       `bson:"totalVotesReceived" json:"totalVotesReceived"`
	LastActive         time.Time `bson:"lastActive" json:"lastActive"`
}

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"`
	Avatar      string             `bson:"avatar" json:"avatar"`
	Bio         string             `bson:"bio" json:"bio"`
	Location    string             `bson:"location" json:"location"`
	Website     string             `bson:"website" json:"website"`
	Preferences Preferences        `bson:"preferences" json:"preferences"`
	Stats       Stats              `bson:"stats" json:"stats"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

/** -------------------- DTOs -------------------- */

// Request
type UpdateProfileRequest struct {
	Name        string       `json:"name"`
	Bio         string       `json:"bio"`
	Location    string       `json:"location"`
	Website     string       `json:"website"`
	Preferences *Preferences `json:"preferences"`
}

// Response
type UserResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Avatar      string      `json:"avatar"`
	Bio         string      `json:"bio"`
	Location    string      `json:"location"`
	Website     string      `json:"website"`
	Preferences Preferences `json:"preferences"`
	Stats       Stats       `json:"stats"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID.Hex(),
		Name:        u.Name,
		Email:       u.Email,
		Avatar:      u.Avatar,
		Bio:         u.Bio,
		Location:    u.Location,
		Website:     u.Website,
		Preferences: u.Preferences,
		Stats:       u.Stats,
		CreatedAt:   u.CreatedAt,
	}
}
