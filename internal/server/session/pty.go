//go:build !windows

package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// PtyTerminal hosts sessions as interactive shells on pseudo-terminals.
// It needs no terminal multiplexer on the host.
type PtyTerminal struct {
	shell string

	mu       sync.Mutex
	sessions map[string]*ptySession
}

type ptySession struct {
	file *os.File
	cmd  *exec.Cmd
	done chan struct{}
}

// NewPtyTerminal returns a terminal starting shell for every session
func NewPtyTerminal(shell string) *PtyTerminal {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &PtyTerminal{
		shell:    shell,
		sessions: make(map[string]*ptySession),
	}
}

func (t *PtyTerminal) NewSession(_ context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[name]; exists {
		return fmt.Errorf("duplicate session: %s", name)
	}

	// pty.Start makes the shell a session leader, so it also leads its own
	// process group
	cmd := exec.Command(t.shell)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start %s on pty: %w", t.shell, err)
	}

	s := &ptySession{file: ptmx, cmd: cmd, done: make(chan struct{})}

	// Terminal echo and prompts are not part of the engine log; drain them so
	// the shell never blocks on a full pty buffer
	go func() {
		_, _ = io.Copy(io.Discard, ptmx)
	}()
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()

	t.sessions[name] = s
	return nil
}

func (t *PtyTerminal) SendLiteral(_ context.Context, name, text string) error {
	s, err := t.lookup(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(s.file, text)
	return err
}

func (t *PtyTerminal) SendEnter(_ context.Context, name string) error {
	s, err := t.lookup(name)
	if err != nil {
		return err
	}
	_, err = s.file.Write([]byte{'\r'})
	return err
}

func (t *PtyTerminal) HasSession(_ context.Context, name string) (bool, error) {
	_, err := t.lookup(name)
	return err == nil, nil
}

func (t *PtyTerminal) KillSession(_ context.Context, name string) error {
	t.mu.Lock()
	s, ok := t.sessions[name]
	delete(t.sessions, name)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("no such session: %s", name)
	}

	// Kill the whole group: the engine and tee run as the shell's children
	if s.cmd.Process != nil {
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
	}
	<-s.done
	return s.file.Close()
}

func (t *PtyTerminal) lookup(name string) (*ptySession, error) {
	t.mu.Lock()
	s, ok := t.sessions[name]
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no such session: %s", name)
	}
	select {
	case <-s.done:
		return nil, fmt.Errorf("session %s has exited", name)
	default:
		return s, nil
	}
}
