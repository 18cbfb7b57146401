package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/repository"
)

type memUserStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	lookupErr     error
	lastActiveErr error
	nextID        int
}

func newMemUserStore(users ...*models.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	u, ok := s.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, repository.ErrDuplicate
	}
	s.nextID++
	user.ID = fmt.Sprintf("u-new-%d", s.nextID)
	user.CreatedAt = time.Now()
	cp := *user
	s.users[user.Email] = &cp
	return user, nil
}

func (s *memUserStore) UpdateLastActive(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastActiveErr != nil {
		return s.lastActiveErr
	}
	for _, u := range s.users {
		if u.ID == userID {
			u.LastActive = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memUserStore) get(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

type memWaitlist struct {
	mu       sync.Mutex
	emails   map[string]struct{}
	err      error
	countErr error
	counts   int
}

func newMemWaitlist() *memWaitlist {
	return &memWaitlist{emails: make(map[string]struct{})}
}

func (w *memWaitlist) InsertIfAbsent(_ context.Context, email string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return false, w.err
	}
	if _, ok := w.emails[email]; ok {
		return false, nil
	}
	w.emails[email] = struct{}{}
	return true, nil
}

func (w *memWaitlist) Count(context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.counts++
	if w.countErr != nil {
		return 0, w.countErr
	}
	return int64(len(w.emails)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingAudit fails every write; audit errors must never reach callers
type recordingAudit struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (a *recordingAudit) RecordSecurityEvent(_ context.Context, e models.SecurityEvent, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return errors.New("audit store down")
}

func (a *recordingAudit) types() []models.SecurityEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.SecurityEventType
	for _, e := range a.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubLimiter struct {
	allow bool
	retry time.Duration
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.retry, l.err
}
