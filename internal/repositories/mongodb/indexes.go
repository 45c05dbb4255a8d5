package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// (raffleId, ticketNumber) index is what makes concurrent ticket inserts
// from several API processes safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"tickets": {
			{
				Keys:    bson.D{{Key: "raffleId", Value: 1}, {Key: "ticketNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("raffle_ticket_number_unique"),
			},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "purchasedAt", Value: -1}}},
		},
		"raffles": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "raffleDate", Value: 1}}},
			{Keys: bson.D{{Key: "creatorId", Value: 1}, {Key: "raffleDate", Value: 1}}},
		},
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		"notifications": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
