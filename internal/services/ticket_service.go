package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// maxAllocationAttempts bounds retries after losing a ticket number race
// against another process sharing the same database.
const maxAllocationAttempts = 5

// Compile-time check to ensure TicketServiceImpl implements TicketService
var _ TicketService = (*TicketServiceImpl)(nil)

// TicketServiceImpl is the ticket allocator
type TicketServiceImpl struct {
	raffleRepo repositories.RaffleRepository
	ticketRepo repositories.TicketRepository
	notifier   Notifier
	rng        NumberSource
	clock      Clock
	locks      *RaffleLocks
}

// NewTicketService creates a new TicketServiceImpl. locks must be the table
// shared with the draw and raffle services; nil gets a private one.
func NewTicketService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	notifier Notifier,
	rng NumberSource,
	clock Clock,
	locks *RaffleLocks,
) *TicketServiceImpl {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TicketServiceImpl{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		notifier:   notifier,
		rng:        rng,
		clock:      clock,
		locks:      orNewLocks(locks),
	}
}

// PurchaseTickets allocates quantity distinct unused numbers of the raffle to
// userID. Either every ticket is persisted or none is.
func (s *TicketServiceImpl) PurchaseTickets(ctx context.Context, userID, raffleID primitive.ObjectID, quantity int) (*models.PurchaseResult, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	unlock := s.locks.Lock(raffleID)
	defer unlock()

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: raffle %s", ErrNotFound, raffleID.Hex())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load raffle: %w", err)
		}
		if !raffle.IsActive() {
			return nil, fmt.Errorf("%w: raffle is %s", ErrInvalidState, raffle.Status)
		}
		if raffle.Remaining() < quantity {
			return nil, fmt.Errorf("%w: only %d tickets left", ErrCapacity, raffle.Remaining())
		}

		used, err := s.ticketRepo.UsedNumbers(ctx, raffleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load allocated numbers: %w", err)
		}
		available := availableNumbers(raffle.TicketRange, used)
		if len(available) < quantity {
			return nil, fmt.Errorf("%w: only %d tickets left", ErrCapacity, len(available))
		}

		if err := s.raffleRepo.ReserveTickets(ctx, raffleID, quantity); err != nil {
			if errors.Is(err, repositories.ErrReservationRejected) {
				// Re-read so the next pass reports the precise reason.
				continue
			}
			return nil, fmt.Errorf("failed to reserve tickets: %w", err)
		}

		now := s.clock.Now()
		numbers := sampleNumbers(s.rng, available, quantity)
		tickets := make([]*models.Ticket, 0, quantity)
		for _, n := range numbers {
			tickets = append(tickets, &models.Ticket{
				RaffleID:     raffleID,
				UserID:       userID,
				CreatorID:    raffle.CreatorID,
				TicketNumber: n,
				Amount:       raffle.TicketPrice,
				PurchasedAt:  now,
			})
		}

		err = s.ticketRepo.InsertMany(ctx, tickets)
		if err == nil {
			// Another process may have drawn or cancelled the raffle between
			// the reservation and the insert.
			if err := s.confirmStillActive(ctx, raffleID, tickets); err != nil {
				return nil, err
			}
			total := float64(quantity) * raffle.TicketPrice
			slog.Info("Tickets purchased", "raffleId", raffleID.Hex(), "userId", userID.Hex(), "quantity", quantity, "total", total)
			s.notifyPurchase(ctx, userID, raffle, numbers)
			return &models.PurchaseResult{Tickets: tickets, Total: total}, nil
		}

		if releaseErr := s.raffleRepo.ReleaseTickets(ctx, raffleID, quantity); releaseErr != nil {
			slog.Error("Failed to release ticket reservation", "error", releaseErr, "raffleId", raffleID.Hex(), "quantity", quantity)
		}
		if !errors.Is(err, repositories.ErrDuplicateTicket) {
			return nil, fmt.Errorf("failed to store tickets: %w", err)
		}
		slog.Warn("Ticket number collision, retrying allocation", "raffleId", raffleID.Hex(), "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: gave up allocating tickets after %d attempts", ErrConflict, maxAllocationAttempts)
}

// confirmStillActive re-reads the raffle after its tickets were stored. If it
// left the active state meanwhile, the tickets and the reservation are undone.
func (s *TicketServiceImpl) confirmStillActive(ctx context.Context, raffleID primitive.ObjectID, tickets []*models.Ticket) error {
	raffle, err := s.raffleRepo.FindByID(ctx, raffleID)
	if err == nil && raffle.IsActive() {
		return nil
	}

	ids := make([]primitive.ObjectID, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	if delErr := s.ticketRepo.DeleteMany(ctx, ids); delErr != nil {
		slog.Error("Failed to remove tickets of closed raffle", "error", delErr, "raffleId", raffleID.Hex(), "count", len(ids))
	}
	if releaseErr := s.raffleRepo.ReleaseTickets(ctx, raffleID, len(tickets)); releaseErr != nil {
		slog.Error("Failed to release ticket reservation", "error", releaseErr, "raffleId", raffleID.Hex(), "quantity", len(tickets))
	}

	if err != nil {
		return fmt.Errorf("failed to confirm raffle state: %w", err)
	}
	slog.Warn("Raffle closed during ticket purchase", "raffleId", raffleID.Hex(), "status", raffle.Status)
	return fmt.Errorf("%w: raffle is %s", ErrInvalidState, raffle.Status)
}

func (s *TicketServiceImpl) notifyPurchase(ctx context.Context, userID primitive.ObjectID, raffle *models.Raffle, numbers []int) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("You purchased %d ticket(s) for %q. Your numbers: %v", len(numbers), raffle.Title, numbers)
	if err := s.notifier.Notify(ctx, userID, "Tickets purchased", msg, models.NotificationKindPurchase); err != nil {
		slog.Error("Failed to send purchase notification", "error", err, "raffleId", raffle.ID.Hex(), "userId", userID.Hex())
	}
}

// GetUserTickets returns every ticket held by userID
func (s *TicketServiceImpl) GetUserTickets(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	tickets, err := s.ticketRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// GetRaffleTickets returns the tickets userID holds for one raffle
func (s *TicketServiceImpl) GetRaffleTickets(ctx context.Context, raffleID, userID primitive.ObjectID) ([]*models.Ticket, error) {
	if _, err := s.raffleRepo.FindByID(ctx, raffleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: raffle %s", ErrNotFound, raffleID.Hex())
		}
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}
	tickets, err := s.ticketRepo.FindByRaffleAndUser(ctx, raffleID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// availableNumbers returns 1..ticketRange minus used, ascending.
func availableNumbers(ticketRange int, used []int) []int {
	taken := make(map[int]struct{}, len(used))
	for _, n := range used {
		taken[n] = struct{}{}
	}
	out := make([]int, 0, ticketRange-len(taken))
	for n := 1; n <= ticketRange; n++ {
		if _, ok := taken[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// sampleNumbers picks k distinct values of pool uniformly at random.
// pool is shuffled in place.
func sampleNumbers(rng NumberSource, pool []int, k int) []int {
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	out := make([]int, k)
	copy(out, pool[:k])
	return out
}
