package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket is one numbered ticket held by a user for a raffle.
// Tickets are never mutated after creation.
type Ticket struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RaffleID     primitive.ObjectID `bson:"raffleId" json:"raffleId"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	CreatorID    primitive.ObjectID `bson:"creatorId" json:"creatorId"`
	TicketNumber int                `bson:"ticketNumber" json:"ticketNumber"`
	Amount       float64            `bson:"amount" json:"amount"`
	PurchasedAt  time.Time          `bson:"purchasedAt" json:"purchasedAt"`
}

// PurchaseRequest is the body of a ticket purchase call.
// PaymentToken is an opaque confirmation from the payment provider.
type PurchaseRequest struct {
	RaffleID     string `json:"raffleId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	PaymentToken string `json:"paymentToken"`
}

// PurchaseResult is returned after a successful allocation
type PurchaseResult struct {
	Tickets []*Ticket `json:"tickets"`
	Total   float64   `json:"total"`
}
