package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure UserRepository implements the interface
var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository handles MongoDB operations for User
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateEmail
	}
	return err
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// Follow adds followerID to targetID's followers and targetID to
// followerID's following. Both updates use $addToSet so repeats are no-ops.
func (r *UserRepository) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	res, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$addToSet": bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Unfollow removes the relation created by Follow
func (r *UserRepository) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	now := time.Now().UTC()
	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": followerID}, "$set": bson.M{"updatedAt": now}},
	); err != nil {
		return err
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$pull": bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}},
	)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
