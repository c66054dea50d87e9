// Package auth exchanges user credentials for a bearer token via the backend
// /login and /signup endpoints.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stockboard/internal/session"
	"stockboard/pkg/stockboard"
)

// DefaultMessage is shown when the backend gives no usable reason.
const DefaultMessage = "Authentication failed"

// AuthenticationError reports a rejected or failed sign-in or sign-up.
// Message is safe to show to the user.
type AuthenticationError struct {
	Message    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Message, e.Err)
	}
	return "authentication: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ValidationError reports a required field left empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// Result is a successful authentication.
type Result struct {
	Token string           `json:"token"`
	User  session.Identity `json:"user"`
}

// Poster is the slice of the API client the service needs.
type Poster interface {
	Post(ctx context.Context, path string, in, out any) error
}

var _ Poster = (*stockboard.Client)(nil)

// Service performs login and registration requests.
type Service struct {
	api Poster
	log *slog.Logger
}

// NewService creates a Service that sends requests through api.
func NewService(api Poster, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthenticateByLogin signs in with email and password.
func (s *Service) AuthenticateByLogin(ctx context.Context, email, password string) (Result, error) {
	if err := require("email", email, "password", password); err != nil {
		return Result{}, err
	}
	return s.authenticate(ctx, "/login", loginRequest{Email: email, Password: password})
}

// AuthenticateByRegistration creates an account and signs in.
func (s *Service) AuthenticateByRegistration(ctx context.Context, name, email, password string) (Result, error) {
	if err := require("name", name, "email", email, "password", password); err != nil {
		return Result{}, err
	}
	return s.authenticate(ctx, "/signup", signupRequest{Name: name, Email: email, Password: password})
}

func (s *Service) authenticate(ctx context.Context, path string, body any) (Result, error) {
	var res Result
	if err := s.api.Post(ctx, path, body, &res); err != nil {
		authErr := toAuthError(err)
		s.log.Warn("authentication failed", "path", path, "status", authErr.StatusCode, "error", err)
		return Result{}, authErr
	}
	if res.Token == "" {
		s.log.Warn("authentication response without token", "path", path)
		return Result{}, &AuthenticationError{Message: DefaultMessage, Err: errors.New("response has no token")}
	}
	return res, nil
}

// toAuthError converts a client error into an AuthenticationError, taking
// the message from a JSON {"message": "..."} body when there is one.
func toAuthError(err error) *AuthenticationError {
	ae := &AuthenticationError{Message: DefaultMessage, Err: err}

	var se *stockboard.StatusError
	if !errors.As(err, &se) {
		return ae
	}
	ae.StatusCode = se.StatusCode

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(se.Body, &body) == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			ae.Message = msg
		}
	}
	return ae
}

// require takes (name, value) pairs and fails on the first blank value.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &ValidationError{Field: pairs[i]}
		}
	}
	return nil
}
