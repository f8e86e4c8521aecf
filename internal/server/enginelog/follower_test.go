package enginelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, opts Options) (*Follower, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.log")
	if opts.Interval == 0 {
		opts.Interval = 20 * time.Millisecond
	}
	f, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, path
}

func appendText(t *testing.T, path, text string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func next(t *testing.T, f *Follower) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	text, err := f.Next(ctx)
	require.NoError(t, err)
	return text
}

func TestOpenCreatesFile(t *testing.T) {
	f, path := openTest(t, Options{})
	assert.Equal(t, path, f.Path())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFollowsAppendedLines(t *testing.T) {
	f, path := openTest(t, Options{})

	appendText(t, path, "Stockfish 16 by the Stockfish developers\r\nreadyok\n")
	assert.Equal(t, "Stockfish 16 by the Stockfish developers", next(t, f))
	assert.Equal(t, "readyok", next(t, f))
}

func TestPartialLineHeldUntilComplete(t *testing.T) {
	f, path := openTest(t, Options{})

	appendText(t, path, "bestmo")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := f.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	appendText(t, path, "ve e2e4 ponder e7e5\n")
	assert.Equal(t, "bestmove e2e4 ponder e7e5", next(t, f))
}

func TestSkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	require.NoError(t, os.WriteFile(path, []byte("old output\n"), 0o644))

	f, err := Open(path, Options{Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	defer f.Close()

	appendText(t, path, "fresh\n")
	assert.Equal(t, "fresh", next(t, f))
}

func TestResetDiscardsPendingLines(t *testing.T) {
	f, path := openTest(t, Options{})

	appendText(t, path, "bestmove a2a3\n")
	// Let the reader pick the stale line up before the reset
	require.Eventually(t, func() bool { return len(f.lines) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.Reset())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	appendText(t, path, "readyok\n")
	assert.Equal(t, "readyok", next(t, f))
}

func TestStaleGenerationSkipped(t *testing.T) {
	f, _ := openTest(t, Options{})

	f.lines <- line{text: "stale", gen: f.gen.Load()}
	f.gen.Add(1)
	f.lines <- line{text: "current", gen: f.gen.Load()}

	assert.Equal(t, "current", next(t, f))
}

func TestExternalTruncation(t *testing.T) {
	f, path := openTest(t, Options{})

	appendText(t, path, "first line\n")
	assert.Equal(t, "first line", next(t, f))

	require.NoError(t, os.Truncate(path, 0))
	appendText(t, path, "x\n")
	assert.Equal(t, "x", next(t, f))
}

func TestBoundedBufferDropsOldest(t *testing.T) {
	f, path := openTest(t, Options{Buffer: 2})

	appendText(t, path, "one\ntwo\nthree\n")
	require.Eventually(t, func() bool { return len(f.lines) == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "two", next(t, f))
	assert.Equal(t, "three", next(t, f))
}

func TestNextHonoursContext(t *testing.T) {
	f, _ := openTest(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNextAfterClose(t *testing.T) {
	f, _ := openTest(t, Options{})
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err := f.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
