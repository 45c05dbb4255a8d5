package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure RaffleRepository implements the interface
var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository handles MongoDB operations for Raffle
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) *RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection("raffles"),
	}
}

// Create inserts a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.ID.IsZero() {
		raffle.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	raffle.CreatedAt = now
	raffle.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, raffle)
	return err
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &raffle, nil
}

// Find lists raffles matching the filter, earliest draw first
func (r *RaffleRepository) Find(ctx context.Context, f models.RaffleFilter) ([]*models.Raffle, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.CreatorID.IsZero() {
		filter["creatorId"] = f.CreatorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "raffleDate", Value: 1}})
	return r.find(ctx, filter, opts)
}

// FindDue returns active raffles whose draw time has passed
func (r *RaffleRepository) FindDue(ctx context.Context, now time.Time) ([]*models.Raffle, error) {
	filter := bson.M{
		"status":     models.RaffleStatusActive,
		"raffleDate": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "raffleDate", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *RaffleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Raffle, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute find query: %w", err)
	}
	defer cursor.Close(ctx)

	var raffles []*models.Raffle
	if err := cursor.All(ctx, &raffles); err != nil {
		return nil, fmt.Errorf("failed to decode raffles: %w", err)
	}
	if raffles == nil {
		raffles = []*models.Raffle{}
	}
	return raffles, nil
}

// CountByCreatorInRange counts non-cancelled raffles of a creator drawn in [start, end)
func (r *RaffleRepository) CountByCreatorInRange(ctx context.Context, creatorID primitive.ObjectID, start, end time.Time) (int, error) {
	filter := bson.M{
		"creatorId":  creatorID,
		"status":     bson.M{"$ne": models.RaffleStatusCancelled},
		"raffleDate": bson.M{"$gte": start, "$lt": end},
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	return int(n), err
}

// CountActiveByCreator counts the creator's active raffles
func (r *RaffleRepository) CountActiveByCreator(ctx context.Context, creatorID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"creatorId": creatorID,
		"status":    models.RaffleStatusActive,
	})
	return int(n), err
}

// ReserveTickets increments ticketsSold only while the raffle is active and
// ticketsSold+quantity stays within ticketRange. The filter and the $inc are
// applied by the server as one atomic document update.
func (r *RaffleRepository) ReserveTickets(ctx context.Context, id primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"_id":    id,
		"status": models.RaffleStatusActive,
		"$expr": bson.M{
			"$lte": bson.A{bson.M{"$add": bson.A{"$ticketsSold", quantity}}, "$ticketRange"},
		},
	}
	update := bson.M{
		"$inc": bson.M{"ticketsSold": quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrReservationRejected
	}
	return nil
}

// ReleaseTickets undoes a reservation
func (r *RaffleRepository) ReleaseTickets(ctx context.Context, id primitive.ObjectID, quantity int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "ticketsSold": bson.M{"$gte": quantity}},
		bson.M{
			"$inc": bson.M{"ticketsSold": -quantity},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	return err
}

// Complete finalizes an active raffle with its draw outcome
func (r *RaffleRepository) Complete(ctx context.Context, id primitive.ObjectID, winningNumber int, winnerID *primitive.ObjectID, at time.Time) error {
	set := bson.M{
		"status":        models.RaffleStatusCompleted,
		"winningNumber": winningNumber,
		"completedAt":   at,
		"updatedAt":     at,
	}
	if winnerID != nil {
		set["winnerId"] = *winnerID
	}
	return r.transition(ctx, id, set)
}

// Cancel moves an active raffle to cancelled
func (r *RaffleRepository) Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.transition(ctx, id, bson.M{
		"status":    models.RaffleStatusCancelled,
		"updatedAt": at,
	})
}

func (r *RaffleRepository) transition(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RaffleStatusActive},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotActive
	}
	return nil
}
