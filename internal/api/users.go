package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	errEmailTaken     = errors.New("email already registered")
	errBadCredentials = errors.New("invalid email or password")
)

type user struct {
	ID       string
	Name     string
	Email    string
	salt     string
	passHash string
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *user) view() userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name}
}

func hashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:])
}

// userStore keeps accounts and issued tokens in memory.
type userStore struct {
	mu      sync.RWMutex
	byEmail map[string]*user
	tokens  map[string]*user
}

func newUserStore() *userStore {
	return &userStore{
		byEmail: make(map[string]*user),
		tokens:  make(map[string]*user),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userStore) register(name, email, password string) (*user, string, error) {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return nil, "", errEmailTaken
	}
	salt := uuid.New().String()
	u := &user{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		Email:    key,
		salt:     salt,
		passHash: hashPassword(salt, password),
	}
	s.byEmail[key] = u
	return u, s.issueLocked(u), nil
}

func (s *userStore) login(email, password string) (*user, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, "", errBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(u.passHash), []byte(hashPassword(u.salt, password))) != 1 {
		return nil, "", errBadCredentials
	}
	return u, s.issueLocked(u), nil
}

func (s *userStore) issueLocked(u *user) string {
	token := uuid.New().String()
	s.tokens[token] = u
	return token
}

func (s *userStore) byToken(token string) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.tokens[token]
	return u, ok
}
