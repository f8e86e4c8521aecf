// Package enginelog follows the append-only output log written by the engine.
//
// A background reader turns appended bytes into lines and pushes them onto a
// bounded channel. Every line is tagged with the reset generation it was read
// in, so lines produced before a Reset are never handed to a reader after it.
package enginelog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"chessd/internal/server/metrics"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Second
	defaultBuffer   = 1024
	readChunk       = 32 * 1024
)

// ErrClosed is returned by Next once the follower is closed
var ErrClosed = errors.New("log follower closed")

type Options struct {
	Interval time.Duration // poll period when no change notification arrives
	Buffer   int           // pending line capacity; oldest lines are dropped beyond it
	Logger   *zap.Logger
}

type line struct {
	text string
	gen  uint64
}

// Follower tails one log file
type Follower struct {
	path     string
	interval time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	lines chan line
	poke  chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	gen atomic.Uint64

	mu      sync.Mutex // guards file position and partial line
	offset  int64
	partial []byte

	closeOnce sync.Once
}

// Open creates the log file if needed and starts following it from its current end
func Open(path string, opts Options) (*Follower, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open engine log: %w", err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("stat engine log: %w", err)
	}

	fl := &Follower{
		path:     path,
		interval: interval,
		logger:   logger.Named("enginelog").With(zap.String("path", path)),
		lines:    make(chan line, buffer),
		poke:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		offset:   info.Size(),
	}

	// Polling alone still works when notifications are unavailable
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fl.logger.Warn("change notifications unavailable, polling only", zap.Error(err))
	} else if err := watcher.Add(path); err != nil {
		fl.logger.Warn("cannot watch engine log, polling only", zap.Error(err))
		watcher.Close()
	} else {
		fl.watcher = watcher
	}

	fl.wg.Add(1)
	go fl.run()
	return fl, nil
}

// Path returns the followed file
func (f *Follower) Path() string {
	return f.path
}

func (f *Follower) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if f.watcher != nil {
		events = f.watcher.Events
		errs = f.watcher.Errors
	}

	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				f.scan()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			f.logger.Warn("watcher error", zap.Error(err))
		case <-f.poke:
			f.scan()
		case <-ticker.C:
			f.scan()
		}
	}
}

// scan reads everything appended since the last scan
func (f *Follower) scan() {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("open engine log", zap.Error(err))
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		f.logger.Warn("stat engine log", zap.Error(err))
		return
	}
	if info.Size() < f.offset {
		// Truncated by someone else
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return
	}

	gen := f.gen.Load()
	buf := make([]byte, readChunk)
	for {
		n, err := file.ReadAt(buf, f.offset)
		if n > 0 {
			f.offset += int64(n)
			f.split(buf[:n], gen)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				f.logger.Warn("read engine log", zap.Error(err))
			}
			return
		}
	}
}

func (f *Follower) split(chunk []byte, gen uint64) {
	for {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			f.partial = append(f.partial, chunk...)
			return
		}
		raw := append(f.partial, chunk[:i]...)
		f.partial = nil
		chunk = chunk[i+1:]

		text := string(bytes.Trim(raw, "\r\x00"))
		if text != "" {
			f.push(line{text: text, gen: gen})
		}
	}
}

// push never blocks the reader; a full buffer loses its oldest line
func (f *Follower) push(l line) {
	for {
		select {
		case f.lines <- l:
			return
		default:
		}
		select {
		case <-f.lines:
			metrics.OutputLinesDropped.Inc()
		default:
		}
	}
}

// Reset truncates the log and discards every pending line
func (f *Follower) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Truncate(f.path, 0); err != nil {
		return fmt.Errorf("truncate engine log: %w", err)
	}
	f.gen.Add(1)
	f.offset = 0
	f.partial = nil
	for {
		select {
		case <-f.lines:
		default:
			return nil
		}
	}
}

// Next blocks until a line written after the last Reset is available
func (f *Follower) Next(ctx context.Context) (string, error) {
	// Pick up anything written since the last tick
	select {
	case f.poke <- struct{}{}:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-f.done:
			return "", ErrClosed
		case l := <-f.lines:
			if l.gen != f.gen.Load() {
				continue
			}
			return l.text, nil
		}
	}
}

// Close stops the background reader; the file is left in place
func (f *Follower) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		if f.watcher != nil {
			err = f.watcher.Close()
		}
		f.wg.Wait()
	})
	return err
}
