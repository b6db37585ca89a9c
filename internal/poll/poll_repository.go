package poll

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

type PollRepository interface {
	Insert(ctx context.Context, p *Poll) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Poll, error)
	// Update performs a version-checked replace of the whole aggregate.
	// It returns false without error when another writer got there first.
	Update(ctx context.Context, p *Poll) (bool, error)
	// Delete removes the poll only when authorID matches the stored author.
	Delete(ctx context.Context, id, authorID primitive.ObjectID) (bool, error)
	ListActive(ctx context.Context, page, limit int) ([]*Poll, int64, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID, page, limit int) ([]*Poll, int64, error)
}

type pollRepository struct {
	collection *mongo.Collection
}

func NewPollRepository(db *database.MongoDB) PollRepository {
	return &pollRepository{collection: db.DB.Collection("polls")}
}

// EnsureIndexes creates the query indexes the listing endpoints rely on.
func EnsureIndexes(ctx context.Context, db *database.MongoDB) error {
	collection := db.DB.Collection("polls")
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
		{Keys: bson.D{{Key: "voters", Value: 1}}},
	})
	return err
}

func (r *pollRepository) Insert(ctx context.Context, p *Poll) error {
	_, err := r.collection.InsertOne(ctx, p)
	return err
}

func (r *pollRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Poll, error) {
	var p Poll
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pollRepository) Update(ctx context.Context, p *Poll) (bool, error) {
	current := p.Version
	p.Version = current + 1
	p.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID, "version": current}, p)
	if err != nil {
		p.Version = current
		return false, err
	}
	if res.MatchedCount == 0 {
		// Lost the race against a concurrent writer.
		p.Version = current
		return false, nil
	}
	return true, nil
}

func (r *pollRepository) Delete(ctx context.Context, id, authorID primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "author": authorID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *pollRepository) ListActive(ctx context.Context, page, limit int) ([]*Poll, int64, error) {
	return r.list(ctx, bson.M{"isActive": true}, page, limit)
}

func (r *pollRepository) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, page, limit int) ([]*Poll, int64, error) {
	return r.list(ctx, bson.M{"author": authorID}, page, limit)
}

func (r *pollRepository) list(ctx context.Context, filter bson.M, page, limit int) ([]*Poll, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	polls := make([]*Poll, 0, limit)
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, 0, err
	}
	return polls, total, nil
}
