// Package avatar resolves how an author's profile picture is presented.
package avatar

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder is the glyph shown when no picture is available or pictures
// are hidden.
const Placeholder = "•"

type Resolver struct {
	baseURL string
}

func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// ResolveAvatarURL returns the picture url for userID, or "" when the default
// placeholder must be rendered. hide always wins over hasAvatar.
func (r *Resolver) ResolveAvatarURL(userID string, hasAvatar, hide bool) string {
	if hide || !hasAvatar || userID == "" {
		return ""
	}
	return r.baseURL + "/profile/avatar/" + url.PathEscape(userID)
}

// Glyph is the terminal stand-in for an avatar: the first letter of the
// name when a picture exists, the placeholder otherwise.
func Glyph(name, avatarURL string) string {
	if avatarURL == "" || name == "" {
		return Placeholder
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return Placeholder
	}
	return string(unicode.ToUpper(r))
}
