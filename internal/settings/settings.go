// Package settings holds the user's display and behavior preferences. The
// record is stored as one flat JSON object; keys this version does not know
// are carried through untouched.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	KeyAutoScroll          = "autoScroll"
	KeyShowTimestamps      = "showTimestamps"
	KeyCtrlEnterToSend     = "ctrlEnterToSend"
	KeyAllowDirectMessages = "allowDirectMessages"
	KeyContentFilter       = "contentFilter"
	KeyHideProfilePictures = "hideProfilePictures"
	KeyTheme               = "theme"
	KeyCompactMode         = "compactMode"
)

type Settings struct {
	AutoScroll          bool   `json:"autoScroll"`
	ShowTimestamps      bool   `json:"showTimestamps"`
	CtrlEnterToSend     bool   `json:"ctrlEnterToSend"`
	AllowDirectMessages bool   `json:"allowDirectMessages"`
	ContentFilter       bool   `json:"contentFilter"`
	HideProfilePictures bool   `json:"hideProfilePictures"`
	Theme               string `json:"theme"`
	CompactMode         bool   `json:"compactMode"`
}

// Defaults are the fallback values for any key missing from storage.
func Defaults() Settings {
	return Settings{
		AutoScroll:          true,
		ShowTimestamps:      true,
		CtrlEnterToSend:     false,
		AllowDirectMessages: true,
		ContentFilter:       true,
		HideProfilePictures: false,
		Theme:               "dark",
		CompactMode:         false,
	}
}

type serverKey struct {
	local string
	// text is true for string values, false for booleans.
	text bool
}

// serverKeys maps the subset of keys mirrored on the server to local keys.
var serverKeys = map[string]serverKey{
	"allow_direct_messages": {local: KeyAllowDirectMessages},
	"show_timestamps":       {local: KeyShowTimestamps},
	"content_filter":        {local: KeyContentFilter},
	"theme":                 {local: KeyTheme, text: true},
}

func (k serverKey) accepts(v gjson.Result) bool {
	if k.text {
		return v.Type == gjson.String
	}
	return v.IsBool()
}

// Decode reads a stored record. Missing keys keep their defaults and an empty
// record yields Defaults().
func Decode(raw string) (Settings, error) {
	s := Defaults()
	if raw == "" {
		return s, nil
	}
	if !gjson.Valid(raw) {
		return s, fmt.Errorf("settings: invalid json")
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Defaults(), fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// Encode writes s into the stored record raw, preserving keys it does not
// own.
func Encode(raw string, s Settings) (string, error) {
	if raw == "" || !gjson.Valid(raw) {
		raw = "{}"
	}
	values := map[string]any{
		KeyAutoScroll:          s.AutoScroll,
		KeyShowTimestamps:      s.ShowTimestamps,
		KeyCtrlEnterToSend:     s.CtrlEnterToSend,
		KeyAllowDirectMessages: s.AllowDirectMessages,
		KeyContentFilter:       s.ContentFilter,
		KeyHideProfilePictures: s.HideProfilePictures,
		KeyTheme:               s.Theme,
		KeyCompactMode:         s.CompactMode,
	}
	var err error
	for k, v := range values {
		if raw, err = sjson.Set(raw, k, v); err != nil {
			return "", fmt.Errorf("settings: set %s: %w", k, err)
		}
	}
	return raw, nil
}

// Merge applies the server-mirrored keys found in server onto local. Keys
// absent from server, values of the wrong type, and every local-only key are
// left as they are.
func Merge(local, server string) (string, error) {
	if local == "" || !gjson.Valid(local) {
		local = "{}"
	}
	if server == "" {
		return local, nil
	}
	if !gjson.Valid(server) {
		return local, fmt.Errorf("settings: invalid server json")
	}
	out := local
	for name, key := range serverKeys {
		v := gjson.Get(server, name)
		if !v.Exists() {
			continue
		}
		if !key.accepts(v) {
			slog.Warn("Ignoring server setting of unexpected type", "key", name, "value", v.Raw)
			continue
		}
		var err error
		if out, err = sjson.SetRaw(out, key.local, v.Raw); err != nil {
			return local, fmt.Errorf("settings: merge %s: %w", name, err)
		}
	}
	return out, nil
}

// ServerPayload returns the server-mirrored subset of s in server naming.
func ServerPayload(s Settings) map[string]any {
	return map[string]any{
		"allow_direct_messages": s.AllowDirectMessages,
		"show_timestamps":       s.ShowTimestamps,
		"content_filter":        s.ContentFilter,
		"theme":                 s.Theme,
	}
}
