package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"chessd/internal/client/display"
	"chessd/internal/client/session"
)

// ErrExit is returned by the exit command; the REPL stops on it
var ErrExit = errors.New("exit requested")

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Group       string
	Handler     func(context.Context, *session.Session, []string) error
}

// Registry manages command registration and execution
type Registry struct {
	session  *session.Session
	commands map[string]*Command
	out      io.Writer
	// Reads one answer for an interactive prompt
	readLine func(prompt string) (string, error)
}

func NewRegistry(s *session.Session) *Registry {
	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
		out:      os.Stdout,
	}
	r.SetInput(os.Stdin)

	r.registerGameCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Group:       groupUtil,
		Handler:     r.helpHandler,
	})

	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Group:       groupUtil,
		Handler:     r.exitHandler,
	})

	return r
}

// SetOutput redirects command and request trace output
func (r *Registry) SetOutput(out io.Writer) {
	r.out = out
	r.session.Client.Out = out
}

// SetInput answers interactive prompts line by line from in
func (r *Registry) SetInput(in io.Reader) {
	scanner := bufio.NewScanner(in)
	r.readLine = func(prompt string) (string, error) {
		fmt.Fprint(r.out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
}

// SetLineReader installs a custom prompt reader such as a readline instance
func (r *Registry) SetLineReader(fn func(prompt string) (string, error)) {
	r.readLine = fn
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line. Handler errors are printed; only ErrExit is returned.
func (r *Registry) Execute(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmdName := parts[0]
	args := parts[1:]

	cmd, exists := r.commands[cmdName]
	if !exists {
		fmt.Fprintf(r.out, "%sUnknown command: %s%s\n", display.Red, cmdName, display.Reset)
		fmt.Fprintf(r.out, "Type 'help' for available commands\n")
		return nil
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	if err := cmd.Handler(ctx, r.session, args); err != nil {
		if errors.Is(err, ErrExit) {
			return err
		}
		fmt.Fprintf(r.out, "%sError: %s%s\n", display.Red, err.Error(), display.Reset)
	}
	return nil
}

const (
	groupGame  = "Game Commands"
	groupDebug = "Server Commands"
	groupUtil  = "Utility Commands"
)

func (r *Registry) helpHandler(_ context.Context, _ *session.Session, args []string) error {
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(r.out, "\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(r.out, "Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		fmt.Fprintf(r.out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(r.out, "\n%sAvailable Commands:%s\n", display.Cyan, display.Reset)

	for _, group := range []string{groupGame, groupDebug, groupUtil} {
		var cmds []*Command
		seen := make(map[string]bool)
		for _, cmd := range r.commands {
			if cmd.Group == group && !seen[cmd.Name] {
				seen[cmd.Name] = true
				cmds = append(cmds, cmd)
			}
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		fmt.Fprintf(r.out, "\n%s%s:%s\n", display.Yellow, group, display.Reset)
		for _, cmd := range cmds {
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = fmt.Sprintf("[%s%s%s] ", display.Cyan, cmd.ShortName, display.Reset)
			}
			fmt.Fprintf(r.out, "  %s%-10s %s\n", shortPart, cmd.Name, cmd.Description)
		}
	}

	fmt.Fprintf(r.out, "\nType 'help <command>' for detailed usage\n")
	fmt.Fprintf(r.out, "Add '-v' to any command for verbose output\n")
	return nil
}

func (r *Registry) exitHandler(context.Context, *session.Session, []string) error {
	fmt.Fprintf(r.out, "%sGoodbye!%s\n", display.Cyan, display.Reset)
	return ErrExit
}
