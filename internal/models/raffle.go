package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusCompleted RaffleStatus = "completed"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

// AllowedTicketRanges lists the ticket range sizes a raffle may be created with.
var AllowedTicketRanges = []int{100, 300, 500, 1000}

// IsAllowedTicketRange reports whether n is one of AllowedTicketRanges.
func IsAllowedTicketRange(n int) bool {
	for _, r := range AllowedTicketRanges {
		if r == n {
			return true
		}
	}
	return false
}

// Raffle represents a raffle published by a creator
type Raffle struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CreatorID     primitive.ObjectID  `bson:"creatorId" json:"creatorId"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Categories    []string            `bson:"categories" json:"categories"`
	TicketRange   int                 `bson:"ticketRange" json:"ticketRange"`
	TicketPrice   float64             `bson:"ticketPrice" json:"ticketPrice"`
	RaffleDate    time.Time           `bson:"raffleDate" json:"raffleDate"`
	Status        RaffleStatus        `bson:"status" json:"status"`
	TicketsSold   int                 `bson:"ticketsSold" json:"ticketsSold"`
	WinningNumber *int                `bson:"winningNumber,omitempty" json:"winningNumber,omitempty"`
	WinnerID      *primitive.ObjectID `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	CompletedAt   *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Remaining returns the number of ticket numbers still unsold.
func (r *Raffle) Remaining() int {
	return r.TicketRange - r.TicketsSold
}

// IsActive reports whether tickets can still be sold for the raffle.
func (r *Raffle) IsActive() bool {
	return r.Status == RaffleStatusActive
}

// RaffleFilter narrows raffle listings. Zero values are ignored.
type RaffleFilter struct {
	Status    RaffleStatus
	CreatorID primitive.ObjectID
}

// CreateRaffleRequest is the payload accepted when a creator publishes a raffle
type CreateRaffleRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	TicketRange int      `json:"ticketRange" binding:"required"`
	TicketPrice float64  `json:"ticketPrice" binding:"required"`
	RaffleDate  string   `json:"raffleDate" binding:"required"` // RFC3339
	Categories  []string `json:"categories"`
}

// DateAvailability answers whether a creator may still schedule a raffle on a day
type DateAvailability struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
}
