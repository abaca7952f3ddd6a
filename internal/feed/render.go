package feed

import (
	"slices"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/chasedut/chatfun/internal/settings"
	"github.com/zeebo/xxh3"
)

const timeLayout = "15:04"

type AvatarResolver interface {
	ResolveAvatarURL(userID string, hasAvatar, hide bool) string
}

// Markup turns raw message text into display text. Implementations must
// escape untrusted input before interpreting any markup.
type Markup interface {
	Render(raw string) string
}

type MarkupFunc func(raw string) string

func (f MarkupFunc) Render(raw string) string { return f(raw) }

// Renderer builds display rows from messages.
type Renderer struct {
	avatars  AvatarResolver
	markup   Markup
	settings func() settings.Settings
	self     func() string
}

// NewRenderer builds a renderer. settings and self are read on every row so
// setting changes and re-logins take effect on the next render.
func NewRenderer(avatars AvatarResolver, markup Markup, settings func() settings.Settings, self func() string) *Renderer {
	return &Renderer{
		avatars:  avatars,
		markup:   markup,
		settings: settings,
		self:     self,
	}
}

func (r *Renderer) Row(m chat.Message) Row {
	st := r.settings()
	row := Row{
		ID:       m.ID,
		AuthorID: m.Author.ID,
		Author:   m.Author.Name,
		Badge:    m.Badge,
		Avatar:   r.avatars.ResolveAvatarURL(m.Author.ID, m.HasAvatar, st.HideProfilePictures),
		Own:      m.Own,
		Local:    m.Local,
	}
	if row.Author == "" {
		row.Author = "Unknown"
	}
	if m.IsDeleted() {
		row.Deleted = true
		row.Body = m.Content
	} else {
		row.Body = r.markup.Render(m.Content)
	}
	if st.ShowTimestamps && !m.Timestamp.IsZero() {
		row.Time = m.Timestamp.Local().Format(timeLayout)
	}
	if m.ReplyTo != nil {
		row.Reply = &ReplyPreview{
			Author:  m.ReplyTo.AuthorName,
			Content: r.markup.Render(m.ReplyTo.Content),
		}
	}
	row.Reactions = r.Reactions(m.Reactions)
	return row
}

func (r *Renderer) Rows(msgs []chat.Message) []Row {
	rows := make([]Row, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, r.Row(m))
	}
	return rows
}

func (r *Renderer) Reactions(reactions chat.Reactions) []ReactionCount {
	if len(reactions) == 0 {
		return nil
	}
	self := ""
	if r.self != nil {
		self = r.self()
	}
	out := make([]ReactionCount, 0, len(reactions))
	for _, emoji := range reactions.Emojis() {
		users := reactions[emoji]
		if len(users) == 0 {
			continue
		}
		out = append(out, ReactionCount{
			Emoji: emoji,
			Count: len(users),
			Mine:  self != "" && reactions.Has(emoji, self),
		})
	}
	return out
}

// fingerprint hashes a reaction map independent of map and slice order.
func fingerprint(reactions chat.Reactions) uint64 {
	if len(reactions) == 0 {
		return 0
	}
	h := xxh3.New()
	for _, emoji := range reactions.Emojis() {
		users := append([]string(nil), reactions[emoji]...)
		slices.Sort(users)
		_, _ = h.WriteString(emoji)
		_, _ = h.WriteString("\x00")
		for _, u := range users {
			_, _ = h.WriteString(u)
			_, _ = h.WriteString("\x01")
		}
	}
	return h.Sum64()
}
