package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ticketTestNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTicketFixture(t *testing.T) (*TicketServiceImpl, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	svc := NewTicketService(store.Raffles(), store.Tickets(), notifier, newSeqSource(7, 3, 11), newFakeClock(ticketTestNow), nil)
	return svc, store, notifier
}

func assertSoldMatchesTickets(t *testing.T, store *memory.Store, raffleID primitive.ObjectID) {
	t.Helper()
	raffle := loadRaffle(t, store, raffleID)
	count, err := store.Tickets().CountByRaffle(context.Background(), raffleID)
	require.NoError(t, err)
	assert.Equal(t, raffle.TicketsSold, count)
	assert.LessOrEqual(t, raffle.TicketsSold, raffle.TicketRange)
}

func TestPurchaseTickets_CapacityScenario(t *testing.T) {
	svc, store, _ := newTicketFixture(t)
	ctx := context.Background()
	raffle := seedRaffle(t, store, 100, 5, ticketTestNow.Add(24*time.Hour))
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	res, err := svc.PurchaseTickets(ctx, alice, raffle.ID, 3)
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 3)
	assert.Equal(t, 15.0, res.Total)
	assert.Equal(t, 3, loadRaffle(t, store, raffle.ID).TicketsSold)

	_, err = svc.PurchaseTickets(ctx, bob, raffle.ID, 98)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 3, loadRaffle(t, store, raffle.ID).TicketsSold)
	bobTickets, err := svc.GetRaffleTickets(ctx, raffle.ID, bob)
	require.NoError(t, err)
	assert.Empty(t, bobTickets)

	res, err = svc.PurchaseTickets(ctx, bob, raffle.ID, 97)
	require.NoError(t, err)
	assert.Equal(t, 485.0, res.Total)
	assert.Equal(t, 100, loadRaffle(t, store, raffle.ID).TicketsSold)

	used, err := store.Tickets().UsedNumbers(ctx, raffle.ID)
	require.NoError(t, err)
	require.Len(t, used, 100)
	for i, n := range used {
		assert.Equal(t, i+1, n)
	}
	assertSoldMatchesTickets(t, store, raffle.ID)

	_, err = svc.PurchaseTickets(ctx, alice, raffle.ID, 1)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestPurchaseTickets_TicketFields(t *testing.T) {
	svc, store, notifier := newTicketFixture(t)
	raffle := seedRaffle(t, store, 300, 2.5, ticketTestNow.Add(time.Hour))
	user := primitive.NewObjectID()

	res, err := svc.PurchaseTickets(context.Background(), user, raffle.ID, 2)
	require.NoError(t, err)
	for _, ticket := range res.Tickets {
		assert.False(t, ticket.ID.IsZero())
		assert.Equal(t, raffle.ID, ticket.RaffleID)
		assert.Equal(t, user, ticket.UserID)
		assert.Equal(t, raffle.CreatorID, ticket.CreatorID)
		assert.Equal(t, 2.5, ticket.Amount)
		assert.Equal(t, ticketTestNow, ticket.PurchasedAt)
		assert.GreaterOrEqual(t, ticket.TicketNumber, 1)
		assert.LessOrEqual(t, ticket.TicketNumber, 300)
	}
	assert.NotEqual(t, res.Tickets[0].TicketNumber, res.Tickets[1].TicketNumber)

	sent := notifier.byKind(models.NotificationKindPurchase)
	require.Len(t, sent, 1)
	assert.Equal(t, user, sent[0].UserID)
}

func TestPurchaseTickets_Rejections(t *testing.T) {
	svc, store, notifier := newTicketFixture(t)
	ctx := context.Background()
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))
	user := primitive.NewObjectID()

	_, err := svc.PurchaseTickets(ctx, user, raffle.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PurchaseTickets(ctx, user, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Raffles().Cancel(ctx, raffle.ID, ticketTestNow))
	_, err = svc.PurchaseTickets(ctx, user, raffle.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	completed := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))
	require.NoError(t, store.Raffles().Complete(ctx, completed.ID, 5, nil, ticketTestNow))
	_, err = svc.PurchaseTickets(ctx, user, completed.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Empty(t, notifier.all())
}

func TestPurchaseTickets_ConcurrentBuyers(t *testing.T) {
	store := memory.NewStore()
	src, err := NewNumberSource()
	require.NoError(t, err)
	svc := NewTicketService(store.Raffles(), store.Tickets(), nil, src, nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	var wg sync.WaitGroup
	var succeeded, capacity atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), raffle.ID, 3)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrCapacity):
				capacity.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(33), succeeded.Load())
	assert.Equal(t, int32(17), capacity.Load())
	assert.Equal(t, 99, loadRaffle(t, store, raffle.ID).TicketsSold)
	assertSoldMatchesTickets(t, store, raffle.ID)

	used, err := store.Tickets().UsedNumbers(context.Background(), raffle.ID)
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, n := range used {
		assert.False(t, seen[n], "number %d allocated twice", n)
		seen[n] = true
	}
}

func TestPurchaseTickets_ParallelBuyersFillLastSlots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	src, err := NewNumberSource()
	require.NoError(t, err)
	svc := NewTicketService(store.Raffles(), store.Tickets(), nil, src, nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	_, err = svc.PurchaseTickets(ctx, primitive.NewObjectID(), raffle.ID, 97)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PurchaseTickets(ctx, primitive.NewObjectID(), raffle.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	used, err := store.Tickets().UsedNumbers(ctx, raffle.ID)
	require.NoError(t, err)
	sort.Ints(used)
	want := make([]int, 100)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, used)
	assert.Equal(t, 100, loadRaffle(t, store, raffle.ID).TicketsSold)

	_, err = svc.PurchaseTickets(ctx, primitive.NewObjectID(), raffle.ID, 1)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestPurchaseTickets_IndependentRafflesInParallel(t *testing.T) {
	store := memory.NewStore()
	src, err := NewNumberSource()
	require.NoError(t, err)
	svc := NewTicketService(store.Raffles(), store.Tickets(), nil, src, nil, nil)
	first := seedRaffle(t, store, 300, 1, ticketTestNow.Add(time.Hour))
	second := seedRaffle(t, store, 300, 1, ticketTestNow.Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, id := range []primitive.ObjectID{first.ID, second.ID} {
			wg.Add(1)
			go func(id primitive.ObjectID) {
				defer wg.Done()
				_, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), id, 5)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 100, loadRaffle(t, store, first.ID).TicketsSold)
	assert.Equal(t, 100, loadRaffle(t, store, second.ID).TicketsSold)
	assertSoldMatchesTickets(t, store, first.ID)
	assertSoldMatchesTickets(t, store, second.ID)
}

// collidingTickets fails the first n inserts as if another process won the numbers.
type collidingTickets struct {
	repositories.TicketRepository
	remaining int
	err       error
}

func (c *collidingTickets) InsertMany(ctx context.Context, tickets []*models.Ticket) error {
	if c.remaining > 0 {
		c.remaining--
		return c.err
	}
	return c.TicketRepository.InsertMany(ctx, tickets)
}

func TestPurchaseTickets_RetriesAfterCollision(t *testing.T) {
	store := memory.NewStore()
	tickets := &collidingTickets{TicketRepository: store.Tickets(), remaining: 2, err: repositories.ErrDuplicateTicket}
	svc := NewTicketService(store.Raffles(), tickets, nil, newSeqSource(0), nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	res, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), raffle.ID, 4)
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 4)
	assert.Equal(t, 4, loadRaffle(t, store, raffle.ID).TicketsSold)
	assertSoldMatchesTickets(t, store, raffle.ID)
}

func TestPurchaseTickets_GivesUpAfterRepeatedCollisions(t *testing.T) {
	store := memory.NewStore()
	tickets := &collidingTickets{TicketRepository: store.Tickets(), remaining: maxAllocationAttempts, err: repositories.ErrDuplicateTicket}
	svc := NewTicketService(store.Raffles(), tickets, nil, newSeqSource(0), nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	_, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), raffle.ID, 2)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, loadRaffle(t, store, raffle.ID).TicketsSold)
	assertSoldMatchesTickets(t, store, raffle.ID)
}

func TestPurchaseTickets_StorageFailureReleasesReservation(t *testing.T) {
	store := memory.NewStore()
	boom := errors.New("write failed")
	tickets := &collidingTickets{TicketRepository: store.Tickets(), remaining: 1, err: boom}
	svc := NewTicketService(store.Raffles(), tickets, nil, newSeqSource(0), nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	_, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), raffle.ID, 2)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, loadRaffle(t, store, raffle.ID).TicketsSold)
}

func TestPurchaseTickets_NotificationFailureKeepsPurchase(t *testing.T) {
	store := memory.NewStore()
	notifier := &recordingNotifier{err: errors.New("inbox down")}
	svc := NewTicketService(store.Raffles(), store.Tickets(), notifier, newSeqSource(0), nil, nil)
	raffle := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))

	_, err := svc.PurchaseTickets(context.Background(), primitive.NewObjectID(), raffle.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, loadRaffle(t, store, raffle.ID).TicketsSold)
}

func TestTicketQueries(t *testing.T) {
	svc, store, _ := newTicketFixture(t)
	ctx := context.Background()
	first := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))
	second := seedRaffle(t, store, 100, 1, ticketTestNow.Add(time.Hour))
	user, other := primitive.NewObjectID(), primitive.NewObjectID()

	_, err := svc.PurchaseTickets(ctx, user, first.ID, 2)
	require.NoError(t, err)
	_, err = svc.PurchaseTickets(ctx, user, second.ID, 1)
	require.NoError(t, err)
	_, err = svc.PurchaseTickets(ctx, other, first.ID, 4)
	require.NoError(t, err)

	mine, err := svc.GetUserTickets(ctx, user)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	inFirst, err := svc.GetRaffleTickets(ctx, first.ID, user)
	require.NoError(t, err)
	assert.Len(t, inFirst, 2)

	_, err = svc.GetRaffleTickets(ctx, primitive.NewObjectID(), user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSampleNumbersDistinct(t *testing.T) {
	pool := availableNumbers(10, []int{2, 4, 6})
	assert.Equal(t, []int{1, 3, 5, 7, 8, 9, 10}, pool)

	picked := sampleNumbers(newSeqSource(5, 1, 3, 0), pool, 4)
	assert.Len(t, picked, 4)
	seen := map[int]bool{}
	for _, n := range picked {
		assert.NotContains(t, []int{2, 4, 6}, n)
		assert.False(t, seen[n])
		seen[n] = true
	}
}
