package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// seqSource replays values, each reduced modulo the requested bound.
type seqSource struct {
	mu     sync.Mutex
	values []int
	i      int
}

func newSeqSource(values ...int) *seqSource {
	if len(values) == 0 {
		values = []int{0}
	}
	return &seqSource{values: values}
}

func (s *seqSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.i%len(s.values)]
	s.i++
	return v % n
}

type sentNotification struct {
	UserID primitive.ObjectID
	Title  string
	Msg    string
	Kind   string
}

// recordingNotifier captures notifications and can be told to fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID primitive.ObjectID, title, message, kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Msg: message, Kind: kind})
	return nil
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

func (n *recordingNotifier) byKind(kind string) []sentNotification {
	out := []sentNotification{}
	for _, s := range n.all() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

var testDrawSchedule = DrawSchedule{Hour: 18, Minute: 0, Location: time.UTC}

func seedRaffle(t *testing.T, store *memory.Store, ticketRange int, price float64, date time.Time) *models.Raffle {
	t.Helper()
	raffle := &models.Raffle{
		CreatorID:   primitive.NewObjectID(),
		Title:       "Weekend hamper",
		TicketRange: ticketRange,
		TicketPrice: price,
		RaffleDate:  date,
		Status:      models.RaffleStatusActive,
	}
	require.NoError(t, store.Raffles().Create(context.Background(), raffle))
	return raffle
}

func loadRaffle(t *testing.T, store *memory.Store, id primitive.ObjectID) *models.Raffle {
	t.Helper()
	raffle, err := store.Raffles().FindByID(context.Background(), id)
	require.NoError(t, err)
	return raffle
}
