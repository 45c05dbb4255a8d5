package services

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// RaffleLocks serializes every state change of a single raffle: ticket
// allocation, draw completion and cancellation. Services sharing a process
// must share one RaffleLocks.
type RaffleLocks struct {
	keys *keyedMutex
}

// NewRaffleLocks creates an empty lock table
func NewRaffleLocks() *RaffleLocks {
	return &RaffleLocks{keys: newKeyedMutex()}
}

// Lock blocks until the raffle is free and returns the matching unlock.
func (l *RaffleLocks) Lock(raffleID primitive.ObjectID) func() {
	return l.keys.Lock(raffleID.Hex())
}

func orNewLocks(l *RaffleLocks) *RaffleLocks {
	if l == nil {
		return NewRaffleLocks()
	}
	return l
}
