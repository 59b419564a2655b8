// Package memory provides an in-memory store.Store implementation.
// It backs unit tests for the auth gate, the revocation registry, and
// the HTTP handlers without requiring a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatherd/gatherd/store"
)

// MemoryStore implements store.Store with process-local maps.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*store.User // keyed by ID
	events        map[string]*store.Event
	attendees     map[string]map[string]*store.Attendee // eventID -> userID
	revokedTokens map[string]*store.RevokedToken
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*store.User),
		events:        make(map[string]*store.Event),
		attendees:     make(map[string]map[string]*store.Attendee),
		revokedTokens: make(map[string]*store.RevokedToken),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}

	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// DeleteUser removes a user by ID. It is not part of store.Store; tests
// use it to simulate an account deleted after a token was issued.
func (s *MemoryStore) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *MemoryStore) CreateEvent(ctx context.Context, e *store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return store.ErrAlreadyExists
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context) ([]*store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*store.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		events = append(events, &cp)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, e *store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.events, id)
	delete(s.attendees, id)
	return nil
}

func (s *MemoryStore) AddAttendee(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attendees[eventID] == nil {
		s.attendees[eventID] = make(map[string]*store.Attendee)
	}
	if _, ok := s.attendees[eventID][userID]; ok {
		return store.ErrAlreadyExists
	}
	s.attendees[eventID][userID] = &store.Attendee{
		EventID:    eventID,
		UserID:     userID,
		SignedUpAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attendees[eventID][userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.attendees[eventID], userID)
	return nil
}

func (s *MemoryStore) ListAttendees(ctx context.Context, eventID string) ([]*store.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attendees := make([]*store.Attendee, 0, len(s.attendees[eventID]))
	for _, a := range s.attendees[eventID] {
		cp := *a
		attendees = append(attendees, &cp)
	}
	sort.Slice(attendees, func(i, j int) bool {
		return attendees[i].SignedUpAt.Before(attendees[j].SignedUpAt)
	})
	return attendees, nil
}

func (s *MemoryStore) CountAttendees(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attendees[eventID]), nil
}

func (s *MemoryStore) CreateRevokedToken(ctx context.Context, rt *store.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revokedTokens[rt.Token]; ok {
		return store.ErrAlreadyExists
	}
	cp := *rt
	s.revokedTokens[rt.Token] = &cp
	return nil
}

func (s *MemoryStore) GetRevokedToken(ctx context.Context, token string) (*store.RevokedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.revokedTokens[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (s *MemoryStore) DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, rt := range s.revokedTokens {
		if rt.ExpiresAt.Before(before) {
			delete(s.revokedTokens, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
