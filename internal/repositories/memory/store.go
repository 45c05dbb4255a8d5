// Package memory provides in-process implementations of the repository
// interfaces. They follow the same atomicity contracts as the MongoDB
// implementations and are used by tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ArowuTest/rafflywin-backend/internal/models"
	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind a single lock.
type Store struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	raffles       map[primitive.ObjectID]models.Raffle
	tickets       map[primitive.ObjectID]models.Ticket
	ticketNumbers map[primitive.ObjectID]map[int]primitive.ObjectID // raffle -> number -> ticket
	notifications map[primitive.ObjectID]models.Notification
	drawRuns      []models.DrawRun
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		users:         make(map[primitive.ObjectID]models.User),
		raffles:       make(map[primitive.ObjectID]models.Raffle),
		tickets:       make(map[primitive.ObjectID]models.Ticket),
		ticketNumbers: make(map[primitive.ObjectID]map[int]primitive.ObjectID),
		notifications: make(map[primitive.ObjectID]models.Notification),
	}
}

// Users returns the user collection
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Raffles returns the raffle collection
func (s *Store) Raffles() *RaffleRepository { return &RaffleRepository{s: s} }

// Tickets returns the ticket collection
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{s: s} }

// Notifications returns the notification collection
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

// DrawRuns returns the draw journal
func (s *Store) DrawRuns() *DrawRunRepository { return &DrawRunRepository{s: s} }

var (
	_ repositories.UserRepository         = (*UserRepository)(nil)
	_ repositories.RaffleRepository       = (*RaffleRepository)(nil)
	_ repositories.TicketRepository       = (*TicketRepository)(nil)
	_ repositories.NotificationRepository = (*NotificationRepository)(nil)
	_ repositories.DrawRunRepository      = (*DrawRunRepository)(nil)
)

// UserRepository is the in-memory user collection
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			u := copyUser(u)
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (r *UserRepository) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	follower, ok := r.s.users[followerID]
	if !ok {
		return repositories.ErrNotFound
	}
	target, ok := r.s.users[targetID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now().UTC()
	target.Followers = addID(target.Followers, followerID)
	target.UpdatedAt = now
	r.s.users[targetID] = target
	// re-read in case follower and target are the same document
	follower = r.s.users[followerID]
	follower.Following = addID(follower.Following, targetID)
	follower.UpdatedAt = now
	r.s.users[followerID] = follower
	return nil
}

func (r *UserRepository) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if target, ok := r.s.users[targetID]; ok {
		target.Followers = removeID(target.Followers, followerID)
		target.UpdatedAt = now
		r.s.users[targetID] = target
	}
	if follower, ok := r.s.users[followerID]; ok {
		follower.Following = removeID(follower.Following, targetID)
		follower.UpdatedAt = now
		r.s.users[followerID] = follower
	}
	return nil
}

func copyUser(u models.User) models.User {
	if u.Followers != nil {
		u.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	}
	if u.Following != nil {
		u.Following = append([]primitive.ObjectID(nil), u.Following...)
	}
	return u
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(append([]primitive.ObjectID(nil), ids...), id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// RaffleRepository is the in-memory raffle collection
type RaffleRepository struct{ s *Store }

func (r *RaffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if raffle.ID.IsZero() {
		raffle.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	raffle.CreatedAt = now
	raffle.UpdatedAt = now
	r.s.raffles[raffle.ID] = copyRaffle(*raffle)
	return nil
}

func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	raffle, ok := r.s.raffles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyRaffle(raffle)
	return &out, nil
}

func (r *RaffleRepository) Find(ctx context.Context, f models.RaffleFilter) ([]*models.Raffle, error) {
	return r.collect(func(raffle *models.Raffle) bool {
		if f.Status != "" && raffle.Status != f.Status {
			return false
		}
		if !f.CreatorID.IsZero() && raffle.CreatorID != f.CreatorID {
			return false
		}
		return true
	}), nil
}

func (r *RaffleRepository) FindDue(ctx context.Context, now time.Time) ([]*models.Raffle, error) {
	return r.collect(func(raffle *models.Raffle) bool {
		return raffle.Status == models.RaffleStatusActive && !raffle.RaffleDate.After(now)
	}), nil
}

func (r *RaffleRepository) collect(match func(*models.Raffle) bool) []*models.Raffle {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.Raffle{}
	for _, raffle := range r.s.raffles {
		raffle := copyRaffle(raffle)
		if match(&raffle) {
			out = append(out, &raffle)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RaffleDate.Equal(out[j].RaffleDate) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].RaffleDate.Before(out[j].RaffleDate)
	})
	return out
}

func (r *RaffleRepository) CountByCreatorInRange(ctx context.Context, creatorID primitive.ObjectID, start, end time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, raffle := range r.s.raffles {
		if raffle.CreatorID != creatorID || raffle.Status == models.RaffleStatusCancelled {
			continue
		}
		if !raffle.RaffleDate.Before(start) && raffle.RaffleDate.Before(end) {
			n++
		}
	}
	return n, nil
}

func (r *RaffleRepository) CountActiveByCreator(ctx context.Context, creatorID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, raffle := range r.s.raffles {
		if raffle.CreatorID == creatorID && raffle.Status == models.RaffleStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *RaffleRepository) ReserveTickets(ctx context.Context, id primitive.ObjectID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	raffle, ok := r.s.raffles[id]
	if !ok || raffle.Status != models.RaffleStatusActive || raffle.TicketsSold+quantity > raffle.TicketRange {
		return repositories.ErrReservationRejected
	}
	raffle.TicketsSold += quantity
	raffle.UpdatedAt = time.Now().UTC()
	r.s.raffles[id] = raffle
	return nil
}

func (r *RaffleRepository) ReleaseTickets(ctx context.Context, id primitive.ObjectID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	raffle, ok := r.s.raffles[id]
	if !ok || raffle.TicketsSold < quantity {
		return nil
	}
	raffle.TicketsSold -= quantity
	raffle.UpdatedAt = time.Now().UTC()
	r.s.raffles[id] = raffle
	return nil
}

func (r *RaffleRepository) Complete(ctx context.Context, id primitive.ObjectID, winningNumber int, winnerID *primitive.ObjectID, at time.Time) error {
	return r.transition(id, func(raffle *models.Raffle) {
		n := winningNumber
		raffle.Status = models.RaffleStatusCompleted
		raffle.WinningNumber = &n
		if winnerID != nil {
			w := *winnerID
			raffle.WinnerID = &w
		}
		completed := at
		raffle.CompletedAt = &completed
		raffle.UpdatedAt = at
	})
}

func (r *RaffleRepository) Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.transition(id, func(raffle *models.Raffle) {
		raffle.Status = models.RaffleStatusCancelled
		raffle.UpdatedAt = at
	})
}

func (r *RaffleRepository) transition(id primitive.ObjectID, apply func(*models.Raffle)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	raffle, ok := r.s.raffles[id]
	if !ok || raffle.Status != models.RaffleStatusActive {
		return repositories.ErrNotActive
	}
	apply(&raffle)
	r.s.raffles[id] = raffle
	return nil
}

func copyRaffle(r models.Raffle) models.Raffle {
	if r.Categories != nil {
		r.Categories = append([]string(nil), r.Categories...)
	}
	if r.WinningNumber != nil {
		n := *r.WinningNumber
		r.WinningNumber = &n
	}
	if r.WinnerID != nil {
		id := *r.WinnerID
		r.WinnerID = &id
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		r.CompletedAt = &t
	}
	return r
}

// TicketRepository is the in-memory ticket collection
type TicketRepository struct{ s *Store }

func (r *TicketRepository) InsertMany(ctx context.Context, tickets []*models.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[primitive.ObjectID]map[int]bool)
	for _, t := range tickets {
		if _, taken := r.s.ticketNumbers[t.RaffleID][t.TicketNumber]; taken {
			return repositories.ErrDuplicateTicket
		}
		if seen[t.RaffleID] == nil {
			seen[t.RaffleID] = make(map[int]bool)
		}
		if seen[t.RaffleID][t.TicketNumber] {
			return repositories.ErrDuplicateTicket
		}
		seen[t.RaffleID][t.TicketNumber] = true
	}
	for _, t := range tickets {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		r.s.tickets[t.ID] = *t
		if r.s.ticketNumbers[t.RaffleID] == nil {
			r.s.ticketNumbers[t.RaffleID] = make(map[int]primitive.ObjectID)
		}
		r.s.ticketNumbers[t.RaffleID][t.TicketNumber] = t.ID
	}
	return nil
}

func (r *TicketRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		t, ok := r.s.tickets[id]
		if !ok {
			continue
		}
		delete(r.s.tickets, id)
		if r.s.ticketNumbers[t.RaffleID][t.TicketNumber] == id {
			delete(r.s.ticketNumbers[t.RaffleID], t.TicketNumber)
		}
	}
	return nil
}

func (r *TicketRepository) UsedNumbers(ctx context.Context, raffleID primitive.ObjectID) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	numbers := make([]int, 0, len(r.s.ticketNumbers[raffleID]))
	for n := range r.s.ticketNumbers[raffleID] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (r *TicketRepository) FindByRaffleAndNumber(ctx context.Context, raffleID primitive.ObjectID, number int) (*models.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.ticketNumbers[raffleID][number]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	t := r.s.tickets[id]
	return &t, nil
}

func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.collect(func(t *models.Ticket) bool { return t.UserID == userID }), nil
}

func (r *TicketRepository) FindByRaffleAndUser(ctx context.Context, raffleID, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.collect(func(t *models.Ticket) bool {
		return t.RaffleID == raffleID && t.UserID == userID
	}), nil
}

func (r *TicketRepository) collect(match func(*models.Ticket) bool) []*models.Ticket {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.Ticket{}
	for _, t := range r.s.tickets {
		t := t
		if match(&t) {
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].TicketNumber < out[j].TicketNumber
		}
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})
	return out
}

func (r *TicketRepository) Participants(ctx context.Context, raffleID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[primitive.ObjectID]bool)
	ids := []primitive.ObjectID{}
	for _, ticketID := range r.s.ticketNumbers[raffleID] {
		userID := r.s.tickets[ticketID].UserID
		if !seen[userID] {
			seen[userID] = true
			ids = append(ids, userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

func (r *TicketRepository) CountByRaffle(ctx context.Context, raffleID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.ticketNumbers[raffleID]), nil
}

// NotificationRepository is the in-memory notification collection
type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.Notification{}
	for _, n := range r.s.notifications {
		n := n
		if n.UserID == userID {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return repositories.ErrNotFound
	}
	n.Read = true
	r.s.notifications[id] = n
	return nil
}

// DrawRunRepository is the in-memory draw journal
type DrawRunRepository struct{ s *Store }

func (r *DrawRunRepository) Create(ctx context.Context, run *models.DrawRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.CreatedAt = time.Now().UTC()
	r.s.drawRuns = append(r.s.drawRuns, *run)
	return nil
}

func (r *DrawRunRepository) FindRecent(ctx context.Context, limit int) ([]*models.DrawRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*models.DrawRun{}
	for i := len(r.s.drawRuns) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		run := r.s.drawRuns[i]
		out = append(out, &run)
	}
	return out, nil
}
