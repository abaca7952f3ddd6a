// Package session holds the signed-in user's credential and identity. There
// is one State per running client, passed explicitly to whoever needs it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chasedut/chatfun/internal/moderation"
	"github.com/chasedut/chatfun/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type User struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Role     moderation.Role `json:"role"`
}

type State struct {
	store Store
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	user      User
	expiresAt time.Time
	// expired latches OnAuthExpired until the next SignIn.
	expired   bool
	listeners []func()
}

func New(s Store) *State {
	return &State{store: s, now: time.Now}
}

// Restore loads a saved credential. It reports false when there is none or
// when the saved token has already expired.
func (s *State) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.Get(ctx, store.KeyToken)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var user User
	if raw, err := s.store.Get(ctx, store.KeyUser); err == nil {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			slog.Warn("Ignoring unreadable saved user", "error", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	exp := tokenExpiry(token)
	if !exp.IsZero() && !s.now().Before(exp) {
		slog.Info("Saved credential has expired")
		return false, s.clear(ctx)
	}

	s.mu.Lock()
	s.token, s.user, s.expiresAt, s.expired = token, user, exp, false
	s.mu.Unlock()
	return true, nil
}

// SignIn stores a fresh credential from login or registration.
func (s *State) SignIn(ctx context.Context, token string, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, store.KeyToken, token); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyUser, string(data)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	s.mu.Lock()
	s.token, s.user, s.expiresAt, s.expired = token, user, tokenExpiry(token), false
	s.mu.Unlock()
	return nil
}

// SignOut forgets the credential locally.
func (s *State) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.token, s.user, s.expiresAt = "", User{}, time.Time{}
	s.mu.Unlock()
	return s.clear(ctx)
}

// UpdateUser replaces identity fields after a status refresh.
func (s *State) UpdateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return nil
	}
	s.user = user
	s.mu.Unlock()
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, store.KeyUser, string(data))
}

// OnAuthExpiredFunc registers fn to run when the credential is rejected.
func (s *State) OnAuthExpiredFunc(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnAuthExpired drops the rejected credential and notifies listeners. Every
// slot reports the same rejection, so only the first call per sign-in acts.
func (s *State) OnAuthExpired() {
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.token = ""
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	slog.Info("Session expired")
	if err := s.clear(context.Background()); err != nil {
		slog.Error("Failed to clear expired credential", "error", err)
	}
	for _, fn := range listeners {
		fn()
	}
}

func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *State) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *State) UserID() string { return s.User().ID }

func (s *State) Role() moderation.Role {
	if r := s.User().Role; r != "" {
		return r
	}
	return moderation.RoleUser
}

func (s *State) Authenticated() bool { return s.Token() != "" }

// ExpiresAt is the token's exp claim, zero when it has none.
func (s *State) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// ExpiresWithin reports whether the token expires in less than d.
func (s *State) ExpiresWithin(d time.Duration) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && exp.Sub(s.now()) < d
}

func (s *State) clear(ctx context.Context) error {
	return errors.Join(
		s.store.Delete(ctx, store.KeyToken),
		s.store.Delete(ctx, store.KeyUser),
	)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server remains the authority on validity.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
