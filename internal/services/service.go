package services

import (
	"context"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthService handles registration, login and token checks
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// FollowService maintains the follow graph between users and creators
type FollowService interface {
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error
}

// RaffleService governs raffle creation constraints and status transitions
type RaffleService interface {
	CreateRaffle(ctx context.Context, creatorID primitive.ObjectID, req *models.CreateRaffleRequest) (*models.Raffle, error)
	CheckDateAvailability(ctx context.Context, creatorID primitive.ObjectID, date time.Time) (*models.DateAvailability, error)
	ListRaffles(ctx context.Context, filter models.RaffleFilter) ([]*models.Raffle, error)
	GetRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	CancelRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
}

// TicketService allocates ticket numbers and answers ticket queries
type TicketService interface {
	PurchaseTickets(ctx context.Context, userID, raffleID primitive.ObjectID, quantity int) (*models.PurchaseResult, error)
	GetUserTickets(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error)
	GetRaffleTickets(ctx context.Context, raffleID, userID primitive.ObjectID) ([]*models.Ticket, error)
}

// DrawService runs draw cycles
type DrawService interface {
	RunDraw(ctx context.Context, now time.Time, trigger models.DrawTrigger) (*models.DrawRun, error)
	ManualDraw(ctx context.Context) (*models.DrawRun, error)
	GetRecentDraws(ctx context.Context, limit int) ([]*models.DrawRun, error)
}

// Notifier persists a user-facing notification
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, title, message, kind string) error
}

// NotificationService is the notification emitter plus the user inbox
type NotificationService interface {
	Notifier
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
}
