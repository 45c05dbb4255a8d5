package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// RafflePolicy holds the creation limits applied to creators
type RafflePolicy struct {
	MaxPerDay int
	// MaxActive caps concurrently active raffles per creator. Zero disables it.
	MaxActive int
	LeadTime  time.Duration
}

// DefaultRafflePolicy returns the limits used when none are configured.
func DefaultRafflePolicy() RafflePolicy {
	return RafflePolicy{MaxPerDay: 3, LeadTime: 3 * time.Hour}
}

// Compile-time check to ensure RaffleServiceImpl implements RaffleService
var _ RaffleService = (*RaffleServiceImpl)(nil)

// RaffleServiceImpl is the raffle lifecycle manager
type RaffleServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	userRepo   repositories.UserRepository
	notifier   Notifier
	policy     RafflePolicy
	schedule   DrawSchedule
	clock      Clock
	// creatorLocks serializes creation per creator so caps hold under concurrency.
	creatorLocks *keyedMutex
	raffleLocks  *RaffleLocks
}

// NewRaffleService creates a new RaffleServiceImpl. userRepo supplies the
// followers told about new raffles and may be nil.
func NewRaffleService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	policy RafflePolicy,
	schedule DrawSchedule,
	clock Clock,
	locks *RaffleLocks,
) *RaffleServiceImpl {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RaffleServiceImpl{
		raffleRepo:   raffleRepo,
		ticketRepo:   ticketRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		policy:       policy,
		schedule:     schedule,
		clock:        clock,
		creatorLocks: newKeyedMutex(),
		raffleLocks:  orNewLocks(locks),
	}
}

// CreateRaffle validates and stores a new active raffle for creatorID
func (s *RaffleServiceImpl) CreateRaffle(ctx context.Context, creatorID primitive.ObjectID, req *models.CreateRaffleRequest) (*models.Raffle, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !models.IsAllowedTicketRange(req.TicketRange) {
		return nil, fmt.Errorf("%w: ticket range must be one of %v", ErrValidation, models.AllowedTicketRanges)
	}
	if req.TicketPrice <= 0 {
		return nil, fmt.Errorf("%w: ticket price must be positive", ErrValidation)
	}
	raffleDate, err := s.parseRaffleDate(req.RaffleDate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if raffleDate.Before(now) {
		return nil, fmt.Errorf("%w: raffle date is in the past", ErrValidation)
	}
	if s.schedule.SameDay(raffleDate, now) {
		cutoff := s.schedule.On(now).Add(-s.policy.LeadTime)
		if now.After(cutoff) {
			return nil, fmt.Errorf("%w: raffles for today must be created before %s", ErrTooLate, cutoff.Format("15:04 MST"))
		}
	}

	unlock := s.creatorLocks.Lock(creatorID.Hex())
	defer unlock()

	start, end := s.schedule.DayBounds(raffleDate)
	count, err := s.raffleRepo.CountByCreatorInRange(ctx, creatorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count raffles: %w", err)
	}
	if count >= s.policy.MaxPerDay {
		return nil, fmt.Errorf("%w: at most %d raffles per day", ErrLimitExceeded, s.policy.MaxPerDay)
	}
	if s.policy.MaxActive > 0 {
		active, err := s.raffleRepo.CountActiveByCreator(ctx, creatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active raffles: %w", err)
		}
		if active >= s.policy.MaxActive {
			return nil, fmt.Errorf("%w: at most %d active raffles", ErrLimitExceeded, s.policy.MaxActive)
		}
	}

	raffle := &models.Raffle{
		CreatorID:   creatorID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Categories:  cleanCategories(req.Categories),
		TicketRange: req.TicketRange,
		TicketPrice: req.TicketPrice,
		RaffleDate:  raffleDate.UTC(),
		Status:      models.RaffleStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		slog.Error("Failed to create raffle", "error", err, "creatorId", creatorID.Hex())
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	slog.Info("Raffle created", "raffleId", raffle.ID.Hex(), "creatorId", creatorID.Hex(), "ticketRange", raffle.TicketRange, "raffleDate", raffle.RaffleDate)
	s.notifyFollowers(ctx, raffle)
	return raffle, nil
}

// notifyFollowers tells the creator's followers about a new raffle. Failures
// are logged; the raffle already exists.
func (s *RaffleServiceImpl) notifyFollowers(ctx context.Context, raffle *models.Raffle) {
	if s.userRepo == nil || s.notifier == nil {
		return
	}
	creator, err := s.userRepo.FindByID(ctx, raffle.CreatorID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			slog.Error("Failed to load raffle creator", "error", err, "creatorId", raffle.CreatorID.Hex())
		}
		return
	}
	name := creator.FullName
	if name == "" {
		name = "A creator you follow"
	}
	msg := fmt.Sprintf("%s created a new raffle: %s", name, raffle.Title)
	for _, followerID := range creator.Followers {
		if err := s.notifier.Notify(ctx, followerID, "New raffle available", msg, models.NotificationKindNewRaffle); err != nil {
			slog.Error("Failed to send new raffle notification", "error", err, "raffleId", raffle.ID.Hex(), "userId", followerID.Hex())
		}
	}
}

// parseRaffleDate accepts RFC3339, a zone-less timestamp read in the draw
// zone, or a bare date which means that day's draw time.
func (s *RaffleServiceImpl) parseRaffleDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", value, s.schedule.location()); err == nil {
		return s.schedule.On(d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, s.schedule.location()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid raffle date %q", ErrValidation, value)
}

// CheckDateAvailability reports whether creatorID may schedule another raffle
// on the calendar day written in date, read in the draw time zone.
func (s *RaffleServiceImpl) CheckDateAvailability(ctx context.Context, creatorID primitive.ObjectID, date time.Time) (*models.DateAvailability, error) {
	y, m, d := date.Date()
	start, end := s.schedule.DayBounds(time.Date(y, m, d, 12, 0, 0, 0, s.schedule.location()))
	count, err := s.raffleRepo.CountByCreatorInRange(ctx, creatorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count raffles: %w", err)
	}
	return &models.DateAvailability{
		Date:      start.Format("2006-01-02"),
		Available: count < s.policy.MaxPerDay,
		Count:     count,
		Limit:     s.policy.MaxPerDay,
	}, nil
}

// ListRaffles returns raffles matching filter ordered by raffle date
func (s *RaffleServiceImpl) ListRaffles(ctx context.Context, filter models.RaffleFilter) ([]*models.Raffle, error) {
	raffles, err := s.raffleRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles: %w", err)
	}
	return raffles, nil
}

// GetRaffle returns a raffle by id
func (s *RaffleServiceImpl) GetRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: raffle %s", ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}
	return raffle, nil
}

// CancelRaffle moves an active raffle to cancelled and tells its participants
func (s *RaffleServiceImpl) CancelRaffle(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	unlock := s.raffleLocks.Lock(id)
	defer unlock()

	raffle, err := s.GetRaffle(ctx, id)
	if err != nil {
		return nil, err
	}
	if !raffle.IsActive() {
		return nil, fmt.Errorf("%w: raffle is %s", ErrInvalidState, raffle.Status)
	}

	if err := s.raffleRepo.Cancel(ctx, id, s.clock.Now()); err != nil {
		if errors.Is(err, repositories.ErrNotActive) {
			return nil, fmt.Errorf("%w: raffle is no longer active", ErrInvalidState)
		}
		return nil, fmt.Errorf("failed to cancel raffle: %w", err)
	}
	slog.Info("Raffle cancelled", "raffleId", id.Hex())

	if s.notifier != nil {
		participants, err := s.ticketRepo.Participants(ctx, id)
		if err != nil {
			slog.Error("Failed to load participants of cancelled raffle", "error", err, "raffleId", id.Hex())
		}
		msg := fmt.Sprintf("The raffle %q has been cancelled.", raffle.Title)
		for _, userID := range append(participants, raffle.CreatorID) {
			if err := s.notifier.Notify(ctx, userID, "Raffle cancelled", msg, models.NotificationKindRaffleCancelled); err != nil {
				slog.Error("Failed to send cancellation notification", "error", err, "raffleId", id.Hex(), "userId", userID.Hex())
			}
		}
	}

	return s.GetRaffle(ctx, id)
}

func cleanCategories(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
