package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a failed request by what the caller should do about it.
type Kind int

const (
	Generic Kind = iota
	Unauthorized
	RateLimited
	Muted
	NotFound
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case RateLimited:
		return "rate_limited"
	case Muted:
		return "muted"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	}
	return "generic"
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api %s (%d): %s", e.Kind, e.Status, e.Message)
}

// Unauthorized reports whether the credential was rejected. The feed engine
// checks for this method rather than the concrete type.
func (e *Error) Unauthorized() bool { return e.Kind == Unauthorized }

// IsKind reports whether err wraps an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// newError builds an Error from a non-2xx response. The message comes from
// the body's "error" field, falling back to the status text.
func newError(status int, body []byte) *Error {
	msg := ""
	if gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "message").String()
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &Error{Kind: classify(status, msg), Status: status, Message: msg}
}

func classify(status int, msg string) Kind {
	switch status {
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusNotFound:
		return NotFound
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(msg), "muted") {
			return Muted
		}
		return Forbidden
	}
	return Generic
}
