package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure DrawRunRepository implements the interface
var _ repositories.DrawRunRepository = (*DrawRunRepository)(nil)

// DrawRunRepository stores the journal of draw cycles
type DrawRunRepository struct {
	collection *mongo.Collection
}

// NewDrawRunRepository creates a new DrawRunRepository
func NewDrawRunRepository(db *mongo.Database) *DrawRunRepository {
	return &DrawRunRepository{
		collection: db.Collection("draw_runs"),
	}
}

// Create records a draw cycle
func (r *DrawRunRepository) Create(ctx context.Context, run *models.DrawRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

// FindRecent returns the latest draw cycles, newest first
func (r *DrawRunRepository) FindRecent(ctx context.Context, limit int) ([]*models.DrawRun, error) {
	opts := options.Find().SetSort(bson.M{"drawTime": -1}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*models.DrawRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []*models.DrawRun{}
	}
	return runs, nil
}
