package user

import (
	"context"
	"errors"
	"time"

	"poll-service/configs/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (*User, error)
	IncPollsCreated(ctx context.Context, id primitive.ObjectID, delta int) error
	IncVotesReceived(ctx context.Context, id primitive.ObjectID, count int) error
	TouchLastActive(ctx context.Context, id primitive.ObjectID) error
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *database.MongoDB) UserRepository {
	return &userRepository{collection: db.DB.Collection("users")}
}

// EnsureIndexes creates the unique email index guarding registration.
func EnsureIndexes(ctx context.Context, db *database.MongoDB) error {
	collection := db.DB.Collection("users")
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *userRepository) Insert(ctx context.Context, u *User) error {
	_, err := r.collection.InsertOne(ctx, u)
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var u User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*User, 0, len(ids))
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*User, error) {
	fields["updatedAt"] = time.Now().UTC()
	return r.findAndUpdate(ctx, id, bson.M{"$set": fields})
}

func (r *userRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (*User, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$set": bson.M{"avatar": url, "updatedAt": time.Now().UTC()},
	})
}

func (r *userRepository) IncPollsCreated(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.totalPollsCreated": delta},
		"$set": bson.M{"stats.lastActive": time.Now().UTC()},
	})
	return err
}

func (r *userRepository) IncVotesReceived(ctx context.Context, id primitive.ObjectID, count int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.totalVotesReceived": count},
	})
	return err
}

func (r *userRepository) TouchLastActive(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stats.lastActive": time.Now().UTC()},
	})
	return err
}

func (r *userRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
