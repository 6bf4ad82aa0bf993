// Package memstore implements TokenStore in process memory. Several session
// managers sharing one Store behave like clients sharing durable storage.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// ErrIncompleteTokens is returned when SaveTokens gets only half a pair.
var ErrIncompleteTokens = errors.New("token pair incomplete: both access and refresh are required")

// Store implements interfaces.TokenStore in memory.
type Store struct {
	mu       sync.Mutex
	tokens   models.Tokens
	watchers map[chan struct{}]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{watchers: make(map[chan struct{}]struct{})}
}

func (s *Store) AccessToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.Access, nil
}

func (s *Store) LoadTokens(_ context.Context) (models.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *Store) SaveTokens(_ context.Context, tokens models.Tokens) error {
	if !tokens.Complete() {
		return ErrIncompleteTokens
	}
	s.mu.Lock()
	s.tokens = tokens
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

func (s *Store) ClearTokens(_ context.Context) error {
	s.mu.Lock()
	s.tokens = models.Tokens{}
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

func (s *Store) notifyLocked() {
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *Store) Close() error { return nil }
