package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, false))

	logger.Debug("hidden")
	logger.Info("Fetched messages", "slot", "global", "count", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Fetched messages")
	assert.Contains(t, out, "slot=global")
	assert.Contains(t, out, "count=3")

	buf.Reset()
	slog.New(NewHandler(&buf, true)).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRecoverPanicRunsCleanup(t *testing.T) {
	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()
	assert.True(t, cleaned)
}
