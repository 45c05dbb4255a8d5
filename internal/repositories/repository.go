package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateTicket is returned when a ticket number is already taken for a raffle.
	ErrDuplicateTicket = errors.New("ticket number already allocated")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrReservationRejected is returned when a reservation compare-and-swap
	// does not match: the raffle is no longer active or lacks capacity.
	ErrReservationRejected = errors.New("ticket reservation rejected")
	// ErrNotActive is returned when a status transition expects an active raffle.
	ErrNotActive = errors.New("raffle is not active")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// Follow records followerID as a follower of targetID on both documents.
	// Returns ErrNotFound if either user does not exist.
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error
}

// RaffleRepository defines the interface for raffle data operations
type RaffleRepository interface {
	Create(ctx context.Context, raffle *models.Raffle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	Find(ctx context.Context, filter models.RaffleFilter) ([]*models.Raffle, error)
	// FindDue returns active raffles whose raffle date is at or before now.
	FindDue(ctx context.Context, now time.Time) ([]*models.Raffle, error)
	// CountByCreatorInRange counts non-cancelled raffles of a creator with a
	// raffle date in [start, end).
	CountByCreatorInRange(ctx context.Context, creatorID primitive.ObjectID, start, end time.Time) (int, error)
	CountActiveByCreator(ctx context.Context, creatorID primitive.ObjectID) (int, error)
	// ReserveTickets atomically increments ticketsSold by quantity if the
	// raffle is active and has at least quantity numbers left.
	ReserveTickets(ctx context.Context, id primitive.ObjectID, quantity int) error
	// ReleaseTickets undoes a reservation made by ReserveTickets.
	ReleaseTickets(ctx context.Context, id primitive.ObjectID, quantity int) error
	// Complete moves an active raffle to completed, recording the outcome.
	// Returns ErrNotActive if the raffle was already finalized.
	Complete(ctx context.Context, id primitive.ObjectID, winningNumber int, winnerID *primitive.ObjectID, at time.Time) error
	// Cancel moves an active raffle to cancelled. Returns ErrNotActive otherwise.
	Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// TicketRepository defines the interface for ticket data operations
type TicketRepository interface {
	// InsertMany persists tickets all-or-nothing. Returns ErrDuplicateTicket
	// if any ticket number is already taken; nothing is persisted in that case.
	InsertMany(ctx context.Context, tickets []*models.Ticket) error
	// DeleteMany removes tickets by id, undoing an InsertMany.
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	UsedNumbers(ctx context.Context, raffleID primitive.ObjectID) ([]int, error)
	FindByRaffleAndNumber(ctx context.Context, raffleID primitive.ObjectID, number int) (*models.Ticket, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error)
	FindByRaffleAndUser(ctx context.Context, raffleID, userID primitive.ObjectID) ([]*models.Ticket, error)
	// Participants returns the distinct user ids holding tickets for a raffle.
	Participants(ctx context.Context, raffleID primitive.ObjectID) ([]primitive.ObjectID, error)
	CountByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
}

// DrawRunRepository defines the interface for the draw cycle journal
type DrawRunRepository interface {
	Create(ctx context.Context, run *models.DrawRun) error
	FindRecent(ctx context.Context, limit int) ([]*models.DrawRun, error)
}
