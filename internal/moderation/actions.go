package moderation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoAction       = errors.New("select at least one action to apply")
	ErrMuteReason     = errors.New("mute reason is required")
	ErrWarnReason     = errors.New("warning reason is required")
	ErrBanReason      = errors.New("ban reason is required")
	ErrInvalidMinutes = errors.New("duration must be a positive number of minutes")
)

const (
	DefaultMuteMinutes = 5
	DefaultBanMinutes  = 1440
)

type Mute struct {
	Minutes int
	Reason  string
}

type Warn struct {
	Reason string
}

// Ban with zero Minutes is permanent.
type Ban struct {
	Minutes int
	Reason  string
}

// Actions is the user actions form. Nil entries are unchecked.
type Actions struct {
	Mute *Mute
	Warn *Warn
	Ban  *Ban
}

// Validate returns every problem with the form joined together.
func (a Actions) Validate() error {
	if a.Mute == nil && a.Warn == nil && a.Ban == nil {
		return ErrNoAction
	}
	var errs []error
	if a.Mute != nil {
		if strings.TrimSpace(a.Mute.Reason) == "" {
			errs = append(errs, ErrMuteReason)
		}
		if a.Mute.Minutes <= 0 {
			errs = append(errs, fmt.Errorf("mute: %w", ErrInvalidMinutes))
		}
	}
	if a.Warn != nil && strings.TrimSpace(a.Warn.Reason) == "" {
		errs = append(errs, ErrWarnReason)
	}
	if a.Ban != nil {
		if strings.TrimSpace(a.Ban.Reason) == "" {
			errs = append(errs, ErrBanReason)
		}
		if a.Ban.Minutes < 0 {
			errs = append(errs, fmt.Errorf("ban: %w", ErrInvalidMinutes))
		}
	}
	return errors.Join(errs...)
}

// Summary lists one line per selected action, in mute, warn, ban order.
func (a Actions) Summary() []string {
	var out []string
	if a.Mute != nil {
		out = append(out, fmt.Sprintf("Muted for %d minutes: %s", a.Mute.Minutes, strings.TrimSpace(a.Mute.Reason)))
	}
	if a.Warn != nil {
		out = append(out, "Warning: "+strings.TrimSpace(a.Warn.Reason))
	}
	if a.Ban != nil {
		duration := "permanently"
		if a.Ban.Minutes > 0 {
			duration = fmt.Sprintf("for %d minutes", a.Ban.Minutes)
		}
		out = append(out, fmt.Sprintf("Banned %s: %s", duration, strings.TrimSpace(a.Ban.Reason)))
	}
	return out
}

// SelfMuteExpiry returns when a mute applied to the acting user ends. The
// second result is false when the form does not mute, or the target is
// someone else.
func (a Actions) SelfMuteExpiry(target, self string, now time.Time) (time.Time, bool) {
	if a.Mute == nil || target == "" || target != self {
		return time.Time{}, false
	}
	return now.Add(time.Duration(a.Mute.Minutes) * time.Minute), true
}
