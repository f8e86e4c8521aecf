// Package tmux drives a tmux server through its command line.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// CommandRunner executes tmux commands
type CommandRunner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// Client executes tmux commands
type Client struct {
	runner CommandRunner
}

// NewClient returns a tmux client using the tmux binary on PATH
func NewClient() *Client {
	return &Client{runner: execRunner{binary: "tmux"}}
}

// NewClientWithRunner returns a tmux client using a custom command runner
func NewClientWithRunner(runner CommandRunner) *Client {
	return &Client{runner: runner}
}

// NewSession creates a detached session running the default shell
func (c *Client) NewSession(ctx context.Context, name string) error {
	return c.run(ctx, []string{"new-session", "-d", "-s", name})
}

// SendLiteral types text into the session without interpreting key names
func (c *Client) SendLiteral(ctx context.Context, name, text string) error {
	return c.run(ctx, []string{"send-keys", "-t", name, "-l", text})
}

// SendEnter presses Enter in the session
func (c *Client) SendEnter(ctx context.Context, name string) error {
	return c.run(ctx, []string{"send-keys", "-t", name, "Enter"})
}

// KillSession terminates a session
func (c *Client) KillSession(ctx context.Context, name string) error {
	return c.run(ctx, []string{"kill-session", "-t", name})
}

// HasSession reports whether the named session exists
func (c *Client) HasSession(ctx context.Context, name string) (bool, error) {
	if c == nil || c.runner == nil {
		return false, errors.New("tmux runner unavailable")
	}
	output, err := c.runner.Run(ctx, []string{"has-session", "-t", name})
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		if len(output) > 0 {
			return false, fmt.Errorf("tmux has-session failed: %s", bytes.TrimSpace(output))
		}
		return false, fmt.Errorf("tmux has-session failed: %w", err)
	}
	return true, nil
}

func (c *Client) run(ctx context.Context, args []string) error {
	if c == nil || c.runner == nil {
		return errors.New("tmux runner unavailable")
	}
	output, err := c.runner.Run(ctx, args)
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("tmux %s failed: %s: %w", args[0], bytes.TrimSpace(output), err)
		}
		return fmt.Errorf("tmux %s failed: %w", args[0], err)
	}
	return nil
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, r.binary, args...).CombinedOutput()
}
