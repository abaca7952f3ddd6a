package styles

import (
	"testing"

	"github.com/chasedut/chatfun/internal/chat"
	"github.com/stretchr/testify/assert"
)

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { SetTheme("dark") })

	SetTheme("light")
	assert.Equal(t, "light", CurrentTheme().Name)
	assert.False(t, CurrentTheme().IsDark)

	SetTheme("neon")
	assert.Equal(t, "dark", CurrentTheme().Name)
}

func TestStylesCoverEveryBadge(t *testing.T) {
	s := Dark().S()
	for _, b := range []chat.Badge{chat.BadgeMod, chat.BadgeAdmin, chat.BadgeOwner, chat.BadgeShadowbanned} {
		_, ok := s.Badges[b]
		assert.True(t, ok, b)
	}
	_, ok := s.Badges[chat.BadgeNone]
	assert.False(t, ok)
}
