package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	trequire "github.com/stretchr/testify/require"

	"stockboard/internal/session"
	"stockboard/internal/store"
	"stockboard/pkg/stockboard"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockPoster implements Poster for testing.
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, path string, in, out any) error {
	args := m.Called(ctx, path, in, out)
	return args.Error(0)
}

func newBackend(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(stockboard.NewClient(srv.URL), quietLogger())
}

func TestAuthenticateByLoginSuccess(t *testing.T) {
	svc := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		var req map[string]string
		trequire.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada@example.com", req["email"])
		assert.Equal(t, "pw", req["password"])
		w.Write([]byte(`{"token":"tok-1","user":{"id":"7","email":"ada@example.com","name":"Ada"}}`))
	})

	res, err := svc.AuthenticateByLogin(context.Background(), "ada@example.com", "pw")
	trequire.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, session.Identity{ID: "7", Email: "ada@example.com", Name: "Ada"}, res.User)
}

func TestLoginThenSessionIsAuthenticatedAfterReload(t *testing.T) {
	svc := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok-9","user":{"id":"1","email":"a@b.c","name":"A"}}`))
	})
	ctx := context.Background()
	kv := store.NewMemoryKV()

	res, err := svc.AuthenticateByLogin(ctx, "a@b.c", "pw")
	trequire.NoError(t, err)

	s := session.New(ctx, kv, quietLogger())
	trequire.NoError(t, s.Login(ctx, res.Token, res.User))
	assert.True(t, s.IsAuthenticated())

	reloaded := session.New(ctx, kv, quietLogger())
	assert.True(t, reloaded.IsAuthenticated())
	assert.Equal(t, "tok-9", reloaded.Token())
}

func TestAuthenticateByRegistration(t *testing.T) {
	svc := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		var req map[string]string
		trequire.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req["name"])
		w.Write([]byte(`{"token":"tok-2","user":{"id":"8","email":"ada@example.com","name":"Ada"}}`))
	})

	res, err := svc.AuthenticateByRegistration(context.Background(), "Ada", "ada@example.com", "pw")
	trequire.NoError(t, err)
	assert.Equal(t, "tok-2", res.Token)
	assert.Equal(t, "Ada", res.User.Name)
}

func TestAuthenticationErrorMessage(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{"server message", http.StatusUnauthorized, `{"message":"Invalid email or password"}`, "Invalid email or password", 401},
		{"duplicate signup", http.StatusConflict, `{"message":"Email already registered"}`, "Email already registered", 409},
		{"empty message", http.StatusUnauthorized, `{"message":""}`, DefaultMessage, 401},
		{"no message field", http.StatusBadRequest, `{"error":"bad"}`, DefaultMessage, 400},
		{"non-json body", http.StatusInternalServerError, `oops`, DefaultMessage, 500},
		{"success without token", http.StatusOK, `{"user":{"id":"1"}}`, DefaultMessage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := svc.AuthenticateByLogin(context.Background(), "a@b.c", "pw")

			var ae *AuthenticationError
			trequire.True(t, errors.As(err, &ae), "error %v should be *AuthenticationError", err)
			assert.Equal(t, tt.wantMsg, ae.Message)
			assert.Equal(t, tt.wantStatus, ae.StatusCode)
		})
	}
}

func TestNetworkFailureIsAuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	svc := NewService(stockboard.NewClient(url), quietLogger())
	_, err := svc.AuthenticateByRegistration(context.Background(), "A", "a@b.c", "pw")

	var ae *AuthenticationError
	trequire.True(t, errors.As(err, &ae))
	assert.Equal(t, DefaultMessage, ae.Message)
	assert.Zero(t, ae.StatusCode)
	assert.NotNil(t, errors.Unwrap(ae))
}

func TestValidationSkipsNetwork(t *testing.T) {
	api := new(MockPoster)
	svc := NewService(api, quietLogger())
	ctx := context.Background()

	tests := []struct {
		name      string
		call      func() error
		wantField string
	}{
		{"login without email", func() error {
			_, err := svc.AuthenticateByLogin(ctx, " ", "pw")
			return err
		}, "email"},
		{"login without password", func() error {
			_, err := svc.AuthenticateByLogin(ctx, "a@b.c", "")
			return err
		}, "password"},
		{"signup without name", func() error {
			_, err := svc.AuthenticateByRegistration(ctx, "", "a@b.c", "pw")
			return err
		}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			trequire.True(t, errors.As(tt.call(), &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	api.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPosterReceivesLoginBody(t *testing.T) {
	api := new(MockPoster)
	api.On("Post", mock.Anything, "/login", loginRequest{Email: "a@b.c", Password: "pw"}, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(3).(*Result)
			out.Token = "tok"
		}).
		Return(nil)

	res, err := NewService(api, quietLogger()).AuthenticateByLogin(context.Background(), "a@b.c", "pw")
	trequire.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	api.AssertExpectations(t)
}
