package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure DrawServiceImpl implements DrawService
var _ DrawService = (*DrawServiceImpl)(nil)

// DrawServiceImpl is the draw engine
type DrawServiceImpl struct {
	raffleRepo  repositories.RaffleRepository
	ticketRepo  repositories.TicketRepository
	drawRunRepo repositories.DrawRunRepository
	notifier    Notifier
	rng         NumberSource
	clock       Clock
	locks       *RaffleLocks

	// mu keeps scheduled and manual cycles from overlapping.
	mu sync.Mutex
}

// NewDrawService creates a new DrawServiceImpl
func NewDrawService(
	raffleRepo repositories.RaffleRepository,
	ticketRepo repositories.TicketRepository,
	drawRunRepo repositories.DrawRunRepository,
	notifier Notifier,
	rng NumberSource,
	clock Clock,
	locks *RaffleLocks,
) *DrawServiceImpl {
	if clock == nil {
		clock = SystemClock{}
	}
	return &DrawServiceImpl{
		raffleRepo:  raffleRepo,
		ticketRepo:  ticketRepo,
		drawRunRepo: drawRunRepo,
		notifier:    notifier,
		rng:         rng,
		clock:       clock,
		locks:       orNewLocks(locks),
	}
}

// ManualDraw runs a cycle for everything due at the current time
func (s *DrawServiceImpl) ManualDraw(ctx context.Context) (*models.DrawRun, error) {
	return s.RunDraw(ctx, s.clock.Now(), models.DrawTriggerManual)
}

// RunDraw completes every active raffle whose raffle date is at or before now.
// One winning number is drawn per distinct ticket range and shared by all due
// raffles of that range. A failing raffle is recorded in its outcome and stays
// active; the remaining raffles are still processed.
func (s *DrawServiceImpl) RunDraw(ctx context.Context, now time.Time, trigger models.DrawTrigger) (*models.DrawRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &models.DrawRun{
		Trigger:        trigger,
		DrawTime:       now,
		Status:         models.DrawRunStatusCompleted,
		WinningNumbers: map[string]int{},
		Outcomes:       []models.DrawOutcome{},
		ExecutionStart: s.clock.Now(),
	}
	s.logf(run, "Starting %s draw for raffles due by %s", trigger, now.Format(time.RFC3339))

	due, err := s.raffleRepo.FindDue(ctx, now)
	if err != nil {
		slog.Error("RunDraw: Failed to load due raffles", "error", err, "trigger", trigger)
		return nil, fmt.Errorf("failed to load due raffles: %w", err)
	}
	s.logf(run, "Found %d due raffles", len(due))

	numbers := s.drawTierNumbers(due)
	for tier, n := range numbers {
		run.WinningNumbers[strconv.Itoa(tier)] = n
		s.logf(run, "Winning number for range %d: %d", tier, n)
	}

	for _, raffle := range due {
		outcome := s.processRaffle(ctx, raffle, numbers[raffle.TicketRange])
		if outcome.Error != "" {
			run.Status = models.DrawRunStatusPartial
			s.logf(run, "Raffle %s failed: %s", raffle.ID.Hex(), outcome.Error)
		} else if outcome.WinnerID != nil {
			s.logf(run, "Raffle %s won by %s with number %d", raffle.ID.Hex(), outcome.WinnerID.Hex(), outcome.WinningNumber)
		} else {
			s.logf(run, "Raffle %s completed without a winner", raffle.ID.Hex())
		}
		run.Outcomes = append(run.Outcomes, outcome)
	}

	run.ExecutionEnd = s.clock.Now()
	if err := s.drawRunRepo.Create(ctx, run); err != nil {
		slog.Error("RunDraw: Failed to journal draw run", "error", err, "trigger", trigger)
	}

	slog.Info("Draw cycle finished", "trigger", trigger, "due", len(due), "status", run.Status)
	return run, nil
}

// drawTierNumbers draws one number in [1, range] per distinct ticket range.
func (s *DrawServiceImpl) drawTierNumbers(due []*models.Raffle) map[int]int {
	tiers := []int{}
	seen := map[int]bool{}
	for _, r := range due {
		if !seen[r.TicketRange] {
			seen[r.TicketRange] = true
			tiers = append(tiers, r.TicketRange)
		}
	}
	// Fixed order keeps draws reproducible with a seeded source.
	sort.Ints(tiers)

	numbers := make(map[int]int, len(tiers))
	for _, tier := range tiers {
		numbers[tier] = s.rng.IntN(tier) + 1
	}
	return numbers
}

func (s *DrawServiceImpl) processRaffle(ctx context.Context, raffle *models.Raffle, number int) models.DrawOutcome {
	outcome := models.DrawOutcome{
		RaffleID:      raffle.ID,
		TicketRange:   raffle.TicketRange,
		WinningNumber: number,
	}

	winnerID, participants, err := s.finalize(ctx, raffle, number, &outcome)
	if err != nil {
		return outcome
	}
	outcome.Completed = true
	outcome.WinnerID = winnerID

	if failed := s.notifyOutcome(ctx, raffle, number, winnerID, participants); failed > 0 {
		outcome.Error = fmt.Sprintf("%d notifications failed", failed)
	}
	return outcome
}

// finalize scores and completes one raffle while holding its lock, so no
// purchase can land between the winner lookup and the status change.
// Failures are recorded in outcome.
func (s *DrawServiceImpl) finalize(ctx context.Context, raffle *models.Raffle, number int, outcome *models.DrawOutcome) (*primitive.ObjectID, []primitive.ObjectID, error) {
	unlock := s.locks.Lock(raffle.ID)
	defer unlock()

	var winnerID *primitive.ObjectID
	ticket, err := s.ticketRepo.FindByRaffleAndNumber(ctx, raffle.ID, number)
	switch {
	case err == nil:
		id := ticket.UserID
		winnerID = &id
	case errors.Is(err, repositories.ErrNotFound):
	default:
		slog.Error("RunDraw: Failed to look up winning ticket", "error", err, "raffleId", raffle.ID.Hex())
		outcome.Error = fmt.Sprintf("winning ticket lookup: %v", err)
		return nil, nil, err
	}

	participants, err := s.ticketRepo.Participants(ctx, raffle.ID)
	if err != nil {
		slog.Error("RunDraw: Failed to load participants", "error", err, "raffleId", raffle.ID.Hex())
		outcome.Error = fmt.Sprintf("participants lookup: %v", err)
		return nil, nil, err
	}
	outcome.Participants = len(participants)

	if err := s.raffleRepo.Complete(ctx, raffle.ID, number, winnerID, s.clock.Now()); err != nil {
		if errors.Is(err, repositories.ErrNotActive) {
			// Someone else finalized it; they own the notifications.
			slog.Warn("RunDraw: Raffle already finalized", "raffleId", raffle.ID.Hex())
			outcome.Error = "raffle already finalized"
			return nil, nil, err
		}
		slog.Error("RunDraw: Failed to complete raffle", "error", err, "raffleId", raffle.ID.Hex())
		outcome.Error = fmt.Sprintf("complete: %v", err)
		return nil, nil, err
	}
	return winnerID, participants, nil
}

// notifyOutcome tells every participant and the creator how the raffle ended.
// It returns the number of notifications that could not be stored.
func (s *DrawServiceImpl) notifyOutcome(ctx context.Context, raffle *models.Raffle, number int, winnerID *primitive.ObjectID, participants []primitive.ObjectID) int {
	if s.notifier == nil {
		return 0
	}
	failed := 0
	send := func(userID primitive.ObjectID, title, message, kind string) {
		if err := s.notifier.Notify(ctx, userID, title, message, kind); err != nil {
			failed++
			slog.Error("RunDraw: Failed to send notification", "error", err, "raffleId", raffle.ID.Hex(), "userId", userID.Hex(), "kind", kind)
		}
	}

	for _, userID := range participants {
		if winnerID != nil && userID == *winnerID {
			send(userID, "You won!",
				fmt.Sprintf("Congratulations! Your ticket number %d won the raffle %q.", number, raffle.Title),
				models.NotificationKindWinner)
			continue
		}
		send(userID, "Raffle results",
			fmt.Sprintf("The winning number for %q was %d. Better luck next time!", raffle.Title, number),
			models.NotificationKindDrawResult)
	}

	summary := fmt.Sprintf("Your raffle %q has been drawn. Winning number: %d. No ticket matched.", raffle.Title, number)
	if winnerID != nil {
		summary = fmt.Sprintf("Your raffle %q has been drawn. Winning number: %d. A participant won.", raffle.Title, number)
	}
	send(raffle.CreatorID, "Raffle completed", summary, models.NotificationKindRaffleCompleted)
	return failed
}

// GetRecentDraws returns the latest journaled draw cycles
func (s *DrawServiceImpl) GetRecentDraws(ctx context.Context, limit int) ([]*models.DrawRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.drawRunRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw runs: %w", err)
	}
	return runs, nil
}

func (s *DrawServiceImpl) logf(run *models.DrawRun, format string, args ...interface{}) {
	run.ExecutionLog = append(run.ExecutionLog, fmt.Sprintf("%s: %s", s.clock.Now().Format(time.RFC3339), fmt.Sprintf(format, args...)))
}
