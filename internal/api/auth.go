package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chasedut/chatfun/internal/moderation"
)

var ErrNoToken = errors.New("server did not return an access token")

type User struct {
	ID       string
	Username string
	Role     moderation.Role
}

type AuthResult struct {
	Token string
	User  User
}

// MuteInfo is the server's view of an active mute on the signed-in user.
type MuteInfo struct {
	Expiry time.Time
	Reason string
	Scope  string
}

type SessionStatus struct {
	User User
	Mute *MuteInfo
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string   `json:"access_token"`
	User        wireUser `json:"user"`
}

type wireMute struct {
	Muted     bool      `json:"muted"`
	ExpiresAt Timestamp `json:"expires_at"`
	Reason    string    `json:"reason"`
	Scope     string    `json:"scope"`
}

type statusResponse struct {
	User wireUser  `json:"user"`
	Mute *wireMute `json:"mute"`
}

func (u wireUser) user() User {
	return User{ID: string(u.ID), Username: u.Username, Role: moderation.ParseRole(u.Role)}
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", username, password)
}

func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (AuthResult, error) {
	var out authResponse
	if err := c.send(ctx, http.MethodPost, path, credentials{Username: username, Password: password}, &out); err != nil {
		return AuthResult{}, err
	}
	if out.AccessToken == "" {
		return AuthResult{}, ErrNoToken
	}
	user := out.User.user()
	if user.Username == "" {
		user.Username = username
	}
	return AuthResult{Token: out.AccessToken, User: user}, nil
}

// Status refreshes the signed-in user and any active mute.
func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	var out statusResponse
	if err := c.get(ctx, "/auth/status", nil, &out); err != nil {
		return SessionStatus{}, err
	}
	st := SessionStatus{User: out.User.user()}
	if m := out.Mute; m != nil && m.Muted && !m.ExpiresAt.Time().IsZero() {
		st.Mute = &MuteInfo{Expiry: m.ExpiresAt.Time(), Reason: m.Reason, Scope: m.Scope}
	}
	return st, nil
}

// Logout tells the server to drop the credential. Local state is cleared by
// the caller whether or not this succeeds.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
