package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wemeetoffline/server/internal/domain/users"
)

type UsersRepository struct {
	collection *mongo.Collection
}

func NewUsersRepository(db *mongo.Database) *UsersRepository {
	return &UsersRepository{collection: db.Collection(usersCollection)}
}

func (r *UsersRepository) Create(ctx context.Context, user *users.User) error {
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (r *UsersRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UsersRepository) GetByEmailHash(ctx context.Context, emailHash string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": emailHash})
}

func (r *UsersRepository) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var user users.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &user, nil
}

func (r *UsersRepository) Update(ctx context.Context, user *users.User) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("updating user: %w", err)
	}
	if result.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}
