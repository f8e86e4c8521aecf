//go:build !windows

package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtyTerminalRunsTypedCommands(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	ctx := context.Background()
	term := NewPtyTerminal("/bin/sh")
	out := filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, term.NewSession(ctx, "test"))
	t.Cleanup(func() { _ = term.KillSession(ctx, "test") })

	ok, err := term.HasSession(ctx, "test")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, term.SendLiteral(ctx, "test", "echo readyok > "+shellQuote(out)))
	require.NoError(t, term.SendEnter(ctx, "test"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && strings.TrimSpace(string(data)) == "readyok"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPtyTerminalUnknownSession(t *testing.T) {
	ctx := context.Background()
	term := NewPtyTerminal("")

	ok, err := term.HasSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, term.SendLiteral(ctx, "missing", "isready"))
	assert.Error(t, term.KillSession(ctx, "missing"))
}
