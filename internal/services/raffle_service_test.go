package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 09:00 UTC on 10 March 2026; draws happen at 18:00 UTC.
var raffleTestNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type raffleFixture struct {
	svc      *RaffleServiceImpl
	store    *memory.Store
	clock    *fakeClock
	notifier *recordingNotifier
}

func newRaffleFixture(t *testing.T, policy RafflePolicy) *raffleFixture {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock(raffleTestNow)
	notifier := &recordingNotifier{}
	return &raffleFixture{
		svc:      NewRaffleService(store.Raffles(), store.Tickets(), store.Users(), notifier, policy, testDrawSchedule, clock, nil),
		store:    store,
		clock:    clock,
		notifier: notifier,
	}
}

func raffleRequest(date string) *models.CreateRaffleRequest {
	return &models.CreateRaffleRequest{
		Title:       "Gaming console",
		Description: "Brand new, sealed",
		TicketRange: 300,
		TicketPrice: 2,
		RaffleDate:  date,
		Categories:  []string{"electronics", " ", "gaming "},
	}
}

func TestCreateRaffle(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	creator := primitive.NewObjectID()

	raffle, err := f.svc.CreateRaffle(context.Background(), creator, raffleRequest("2026-03-12T18:00:00Z"))
	require.NoError(t, err)
	assert.False(t, raffle.ID.IsZero())
	assert.Equal(t, creator, raffle.CreatorID)
	assert.Equal(t, models.RaffleStatusActive, raffle.Status)
	assert.Equal(t, 0, raffle.TicketsSold)
	assert.Nil(t, raffle.WinningNumber)
	assert.Nil(t, raffle.WinnerID)
	assert.Equal(t, []string{"electronics", "gaming"}, raffle.Categories)
	assert.Equal(t, time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC), raffle.RaffleDate)
}

func TestCreateRaffle_NotifiesFollowers(t *testing.T) {
	ctx := context.Background()
	f := newRaffleFixture(t, DefaultRafflePolicy())
	creator := createUser(t, f.store, "creator@rafflywin.test", models.RoleCreator)
	fan := createUser(t, f.store, "fan@rafflywin.test", models.RoleUser)
	bystander := createUser(t, f.store, "other@rafflywin.test", models.RoleUser)
	require.NoError(t, NewFollowService(f.store.Users()).Follow(ctx, fan.ID, creator.ID))

	raffle, err := f.svc.CreateRaffle(ctx, creator.ID, raffleRequest("2026-03-12T18:00:00Z"))
	require.NoError(t, err)

	sent := f.notifier.byKind(models.NotificationKindNewRaffle)
	require.Len(t, sent, 1)
	assert.Equal(t, fan.ID, sent[0].UserID)
	assert.Contains(t, sent[0].Msg, raffle.Title)
	assert.Contains(t, sent[0].Msg, creator.FullName)
	for _, n := range f.notifier.all() {
		assert.NotEqual(t, bystander.ID, n.UserID)
	}
}

func TestCreateRaffle_FollowerNotificationFailureKeepsRaffle(t *testing.T) {
	ctx := context.Background()
	f := newRaffleFixture(t, DefaultRafflePolicy())
	creator := createUser(t, f.store, "creator@rafflywin.test", models.RoleCreator)
	fan := createUser(t, f.store, "fan@rafflywin.test", models.RoleUser)
	require.NoError(t, NewFollowService(f.store.Users()).Follow(ctx, fan.ID, creator.ID))
	f.notifier.err = errors.New("inbox down")

	raffle, err := f.svc.CreateRaffle(ctx, creator.ID, raffleRequest("2026-03-12T18:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusActive, loadRaffle(t, f.store, raffle.ID).Status)
}

func TestCreateRaffle_DateOnlyMeansDrawTime(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())

	raffle, err := f.svc.CreateRaffle(context.Background(), primitive.NewObjectID(), raffleRequest("2026-03-11"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC), raffle.RaffleDate)
}

func TestCreateRaffle_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateRaffleRequest)
	}{
		{"blank title", func(r *models.CreateRaffleRequest) { r.Title = "   " }},
		{"range not allowed", func(r *models.CreateRaffleRequest) { r.TicketRange = 200 }},
		{"zero price", func(r *models.CreateRaffleRequest) { r.TicketPrice = 0 }},
		{"negative price", func(r *models.CreateRaffleRequest) { r.TicketPrice = -1 }},
		{"malformed date", func(r *models.CreateRaffleRequest) { r.RaffleDate = "next tuesday" }},
		{"date in the past", func(r *models.CreateRaffleRequest) { r.RaffleDate = "2026-03-09T18:00:00Z" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRaffleFixture(t, DefaultRafflePolicy())
			req := raffleRequest("2026-03-12T18:00:00Z")
			tt.mutate(req)

			_, err := f.svc.CreateRaffle(context.Background(), primitive.NewObjectID(), req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateRaffle_DailyCap(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	creator := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12T18:00:00Z"))
		require.NoError(t, err)
	}

	_, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12T20:00:00Z"))
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-13T18:00:00Z"))
	assert.NoError(t, err)

	// The cap is per creator.
	_, err = f.svc.CreateRaffle(ctx, primitive.NewObjectID(), raffleRequest("2026-03-12T18:00:00Z"))
	assert.NoError(t, err)
}

func TestCreateRaffle_CancelledRafflesFreeTheDay(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	creator := primitive.NewObjectID()

	var last *models.Raffle
	for i := 0; i < 3; i++ {
		r, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12T18:00:00Z"))
		require.NoError(t, err)
		last = r
	}
	_, err := f.svc.CancelRaffle(ctx, last.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12T18:00:00Z"))
	assert.NoError(t, err)
}

func TestCreateRaffle_LeadTime(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	creator := primitive.NewObjectID()

	f.clock.Set(time.Date(2026, 3, 10, 14, 59, 0, 0, time.UTC))
	_, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-10"))
	require.NoError(t, err)

	f.clock.Set(time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC))
	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-10"))
	assert.ErrorIs(t, err, ErrTooLate)

	// Tomorrow is still fine.
	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-11"))
	assert.NoError(t, err)
}

func TestCreateRaffle_ActiveCap(t *testing.T) {
	policy := DefaultRafflePolicy()
	policy.MaxActive = 2
	f := newRaffleFixture(t, policy)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	_, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-11"))
	require.NoError(t, err)
	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12"))
	require.NoError(t, err)

	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-13"))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCheckDateAvailability(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	creator := primitive.NewObjectID()
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	avail, err := f.svc.CheckDateAvailability(ctx, creator, day)
	require.NoError(t, err)
	assert.Equal(t, &models.DateAvailability{Date: "2026-03-12", Available: true, Count: 0, Limit: 3}, avail)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12"))
		require.NoError(t, err)
	}

	avail, err = f.svc.CheckDateAvailability(ctx, creator, day)
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Equal(t, 3, avail.Count)

	_, err = f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12"))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestListAndGetRaffles(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	later, err := f.svc.CreateRaffle(ctx, alice, raffleRequest("2026-03-14"))
	require.NoError(t, err)
	sooner, err := f.svc.CreateRaffle(ctx, alice, raffleRequest("2026-03-11"))
	require.NoError(t, err)
	_, err = f.svc.CreateRaffle(ctx, bob, raffleRequest("2026-03-12"))
	require.NoError(t, err)

	mine, err := f.svc.ListRaffles(ctx, models.RaffleFilter{CreatorID: alice})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, sooner.ID, mine[0].ID)
	assert.Equal(t, later.ID, mine[1].ID)

	_, err = f.svc.CancelRaffle(ctx, later.ID)
	require.NoError(t, err)
	active, err := f.svc.ListRaffles(ctx, models.RaffleFilter{Status: models.RaffleStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	got, err := f.svc.GetRaffle(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, sooner.Title, got.Title)

	_, err = f.svc.GetRaffle(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRaffle(t *testing.T) {
	f := newRaffleFixture(t, DefaultRafflePolicy())
	ctx := context.Background()
	creator, buyer := primitive.NewObjectID(), primitive.NewObjectID()

	raffle, err := f.svc.CreateRaffle(ctx, creator, raffleRequest("2026-03-12"))
	require.NoError(t, err)
	tickets := NewTicketService(f.store.Raffles(), f.store.Tickets(), nil, newSeqSource(0), f.clock, nil)
	_, err = tickets.PurchaseTickets(ctx, buyer, raffle.ID, 2)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusCancelled, cancelled.Status)

	sent := f.notifier.byKind(models.NotificationKindRaffleCancelled)
	require.Len(t, sent, 2)
	assert.ElementsMatch(t, []primitive.ObjectID{buyer, creator}, []primitive.ObjectID{sent[0].UserID, sent[1].UserID})

	_, err = f.svc.CancelRaffle(ctx, raffle.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = tickets.PurchaseTickets(ctx, buyer, raffle.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.CancelRaffle(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDrawSchedule(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	s := DrawSchedule{Hour: 18, Minute: 30, Location: lagos}

	// 23:30 UTC is already the next day in Lagos (UTC+1).
	ts := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 18, 30, 0, 0, lagos), s.On(ts))

	start, end := s.DayBounds(ts)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, lagos), start)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, lagos), end)

	assert.True(t, s.SameDay(ts, time.Date(2026, 3, 11, 12, 0, 0, 0, lagos)))
	assert.False(t, s.SameDay(ts, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
}
