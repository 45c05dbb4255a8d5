package services

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NumberSource draws uniform integers in [0, n)
type NumberSource interface {
	IntN(n int) int
}

// lockedSource makes a *rand.Rand safe for concurrent use
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNumberSource returns a ChaCha8 generator seeded from crypto/rand.
func NewNumberSource() (NumberSource, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return &lockedSource{rng: rand.New(rand.NewChaCha8(seed))}, nil
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// DrawSchedule is the fixed daily draw time in a reference time zone
type DrawSchedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (d DrawSchedule) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// On returns the draw time on the calendar day of t.
func (d DrawSchedule) On(t time.Time) time.Time {
	t = t.In(d.location())
	return time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, d.location())
}

// DayBounds returns [start, end) of the calendar day containing t.
func (d DrawSchedule) DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(d.location())
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, d.location())
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day.
func (d DrawSchedule) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(d.location()).Date()
	by, bm, bd := b.In(d.location()).Date()
	return ay == by && am == bm && ad == bd
}
