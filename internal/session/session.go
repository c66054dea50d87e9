// Package session holds the signed-in user's credential and identity and
// persists them across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"stockboard/internal/store"
)

// Keys under which the session is persisted.
const (
	TokenKey    = "authToken"
	IdentityKey = "authUser"
)

// ErrEmptyCredential is returned by Login when the credential is empty.
var ErrEmptyCredential = errors.New("session: empty credential")

// Identity describes the signed-in user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Store is the process-wide session. It makes no network calls.
type Store struct {
	kv  store.KV
	log *slog.Logger

	mu       sync.RWMutex
	token    string
	identity Identity
}

// New creates a Store over kv and hydrates it from persisted state. Missing
// or unreadable state leaves the store unauthenticated.
func New(ctx context.Context, kv store.KV, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{kv: kv, log: log}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	token, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		s.log.Warn("reading persisted session", "error", err)
		return
	}
	if !ok || token == "" {
		return
	}

	var id Identity
	raw, ok, err := s.kv.Get(ctx, IdentityKey)
	if err != nil {
		s.log.Warn("reading persisted identity", "error", err)
		return
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			s.log.Warn("discarding corrupt persisted session", "error", err)
			if err := s.clearPersisted(ctx); err != nil {
				s.log.Warn("clearing corrupt persisted session", "error", err)
			}
			return
		}
	}

	s.mu.Lock()
	s.token = token
	s.identity = id
	s.mu.Unlock()
	s.log.Info("session restored", "user", id.Email)
}

// Login persists a successful authentication and then records it. When
// persistence fails the store ends signed out.
func (s *Store) Login(ctx context.Context, credential string, identity Identity) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	if err := s.persist(ctx, credential, string(raw)); err != nil {
		s.mu.Lock()
		s.token = ""
		s.identity = Identity{}
		s.mu.Unlock()
		if cerr := s.clearPersisted(ctx); cerr != nil {
			s.log.Warn("rolling back partial session", "error", cerr)
		}
		return err
	}

	s.mu.Lock()
	s.token = credential
	s.identity = identity
	s.mu.Unlock()
	s.log.Info("signed in", "user", identity.Email)
	return nil
}

func (s *Store) persist(ctx context.Context, credential, identity string) error {
	if err := s.kv.Set(ctx, TokenKey, credential); err != nil {
		return fmt.Errorf("persisting credential: %w", err)
	}
	if err := s.kv.Set(ctx, IdentityKey, identity); err != nil {
		return fmt.Errorf("persisting identity: %w", err)
	}
	return nil
}

// Logout clears the session. The in-memory state is cleared even when the
// persisted copy cannot be removed.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.identity = Identity{}
	s.mu.Unlock()

	if err := s.clearPersisted(ctx); err != nil {
		return err
	}
	s.log.Info("signed out")
	return nil
}

func (s *Store) clearPersisted(ctx context.Context) error {
	err1 := s.kv.Delete(ctx, TokenKey)
	err2 := s.kv.Delete(ctx, IdentityKey)
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("clearing persisted session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a credential is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Token returns the current credential, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns the current user, zero when signed out.
func (s *Store) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}
