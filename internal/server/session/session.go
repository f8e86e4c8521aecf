// Package session owns the interactive terminal session the engine runs in.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chessd/internal/server/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrDelivery wraps every failure to get a command line into the session
	ErrDelivery = errors.New("command delivery failed")
	// ErrNotStarted is returned by Send before Start succeeded
	ErrNotStarted = errors.New("session not started")
	// ErrSessionGone is returned by Alive when the terminal session no longer exists
	ErrSessionGone = errors.New("session no longer exists")
	// ErrInvalidCommand is returned for commands that would span more than one line
	ErrInvalidCommand = errors.New("command must be a single line")
)

// Terminal hosts named interactive sessions that accept keyboard input
type Terminal interface {
	NewSession(ctx context.Context, name string) error
	SendLiteral(ctx context.Context, name, text string) error
	SendEnter(ctx context.Context, name string) error
	HasSession(ctx context.Context, name string) (bool, error)
	KillSession(ctx context.Context, name string) error
}

type Config struct {
	EnginePath string // command typed into the session, may carry arguments
	LogDir     string
	Prefix     string // session name prefix, defaults to "stockfish"
}

// Manager runs one engine inside one terminal session and serializes input to it
type Manager struct {
	term    Terminal
	logger  *zap.Logger
	id      string
	name    string
	logPath string
	launch  string

	mu      sync.Mutex
	started bool
}

// New allocates a session identity; nothing is created until Start
func New(term Terminal, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stockfish"
	}
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = os.TempDir()
	}

	id := uuid.NewString()
	name := prefix + "-" + id
	logPath := filepath.Join(logDir, name+".log")

	return &Manager{
		term:    term,
		logger:  logger.Named("session").With(zap.String("session", name)),
		id:      id,
		name:    name,
		logPath: logPath,
		launch:  fmt.Sprintf("%s | tee -a %s", cfg.EnginePath, shellQuote(logPath)),
	}
}

// ID returns the generated session identifier
func (m *Manager) ID() string { return m.id }

// Name returns the terminal session name
func (m *Manager) Name() string { return m.name }

// LogPath returns the file the engine output is appended to
func (m *Manager) LogPath() string { return m.logPath }

// Start creates the terminal session and launches the engine inside it.
// Calling Start on a started manager is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	// Create the log up front so readers can open it before the engine writes
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create engine log %s: %w", m.logPath, err)
	}
	f.Close()

	if err := m.term.NewSession(ctx, m.name); err != nil {
		return fmt.Errorf("create session %s: %w", m.name, err)
	}
	if err := m.deliver(ctx, m.launch); err != nil {
		return fmt.Errorf("launch engine: %w", err)
	}

	m.started = true
	m.logger.Info("engine session started", zap.String("log", m.logPath))
	return nil
}

// Send types command into the session followed by Enter.
// Concurrent callers are serialized, so each caller's commands arrive in order.
func (m *Manager) Send(ctx context.Context, command string) error {
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	return m.deliver(ctx, command)
}

// deliver must be called with mu held
func (m *Manager) deliver(ctx context.Context, text string) error {
	log := logging.FromContext(ctx, m.logger)
	log.Debug("sending command", zap.String("command", text))

	if err := m.term.SendLiteral(ctx, m.name, text); err != nil {
		log.Error("terminal rejected command", zap.String("command", text), zap.Error(err))
		return fmt.Errorf("%w: send %q: %w", ErrDelivery, text, err)
	}
	if err := m.term.SendEnter(ctx, m.name); err != nil {
		log.Error("terminal rejected enter", zap.String("command", text), zap.Error(err))
		return fmt.Errorf("%w: submit %q: %w", ErrDelivery, text, err)
	}
	return nil
}

// Alive reports whether the terminal session still exists
func (m *Manager) Alive(ctx context.Context) error {
	ok, err := m.term.HasSession(ctx, m.name)
	if err != nil {
		return fmt.Errorf("check session %s: %w", m.name, err)
	}
	if !ok {
		return ErrSessionGone
	}
	return nil
}

// Close kills the terminal session and removes the engine log
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	var errs []error
	if err := m.term.KillSession(ctx, m.name); err != nil {
		errs = append(errs, fmt.Errorf("kill session %s: %w", m.name, err))
	}
	if err := os.Remove(m.logPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove engine log: %w", err))
	}
	return errors.Join(errs...)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
