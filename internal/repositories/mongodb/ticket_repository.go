package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure TicketRepository implements the interface
var _ repositories.TicketRepository = (*TicketRepository)(nil)

// TicketRepository handles MongoDB operations for Ticket.
// Uniqueness of (raffleId, ticketNumber) is enforced by the index created in EnsureIndexes.
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{
		collection: db.Collection("tickets"),
	}
}

// InsertMany inserts all tickets or none of them
func (r *TicketRepository) InsertMany(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	docs := make([]interface{}, len(tickets))
	ids := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		ids[i] = t.ID
		docs[i] = t
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	// Ordered inserts stop at the first failure; remove whatever made it in.
	if _, delErr := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); delErr != nil {
		slog.Error("TicketRepository: failed to roll back partial insert", "error", delErr, "count", len(ids))
	}
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateTicket
	}
	return fmt.Errorf("failed to insert tickets: %w", err)
}

// DeleteMany removes tickets by id
func (r *TicketRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	return nil
}

// UsedNumbers returns the ticket numbers already allocated for a raffle
func (r *TicketRepository) UsedNumbers(ctx context.Context, raffleID primitive.ObjectID) ([]int, error) {
	opts := options.Find().SetProjection(bson.M{"ticketNumber": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"raffleId": raffleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TicketNumber int `bson:"ticketNumber"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	numbers := make([]int, len(rows))
	for i, row := range rows {
		numbers[i] = row.TicketNumber
	}
	return numbers, nil
}

// FindByRaffleAndNumber finds the ticket holding a number in a raffle
func (r *TicketRepository) FindByRaffleAndNumber(ctx context.Context, raffleID primitive.ObjectID, number int) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.collection.FindOne(ctx, bson.M{"raffleId": raffleID, "ticketNumber": number}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// FindByUser lists a user's tickets, newest first
func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// FindByRaffleAndUser lists a user's tickets for one raffle
func (r *TicketRepository) FindByRaffleAndUser(ctx context.Context, raffleID, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"raffleId": raffleID, "userId": userID})
}

func (r *TicketRepository) find(ctx context.Context, filter bson.M) ([]*models.Ticket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: -1}, {Key: "ticketNumber", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

// Participants returns the distinct ticket holders of a raffle
func (r *TicketRepository) Participants(ctx context.Context, raffleID primitive.ObjectID) ([]primitive.ObjectID, error) {
	values, err := r.collection.Distinct(ctx, "userId", bson.M{"raffleId": raffleID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		id, ok := v.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("unexpected userId type %T", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CountByRaffle counts the tickets persisted for a raffle
func (r *TicketRepository) CountByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"raffleId": raffleID})
	return int(n), err
}
