package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds emitted by the raffle core
const (
	NotificationKindPurchase        = "purchase"
	NotificationKindWinner          = "winner"
	NotificationKindDrawResult      = "draw_result"
	NotificationKindRaffleCompleted = "raffle_completed"
	NotificationKindRaffleCancelled = "raffle_cancelled"
	NotificationKindNewRaffle       = "new_raffle"
)

// Notification represents an inbox entry for a user
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Kind      string             `bson:"kind" json:"kind"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
