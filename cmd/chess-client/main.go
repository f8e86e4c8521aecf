// Package main implements an interactive client for the chessd REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"chessd/internal/client/commands"
	"chessd/internal/client/display"
	"chessd/internal/client/session"

	"github.com/chzyer/readline"
)

func main() {
	apiURL := flag.String("url", "http://localhost:8080", "chessd API base URL")
	token := flag.String("token", os.Getenv("CHESSD_TOKEN"), "bearer token for the game API")
	flag.Parse()

	s := session.New(*apiURL)
	s.Client.SetToken(*token)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sChess Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)
	registry.SetOutput(rl.Stdout())
	registry.SetLineReader(func(prompt string) (string, error) {
		rl.SetPrompt(prompt)
		return rl.Readline()
	})

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "quit" {
			break
		}

		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		} else {
			s.Verbose = false
		}

		// Ctrl-C while a request is in flight cancels just that request
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = registry.Execute(ctx, line)
		stop()
		if errors.Is(err, commands.ErrExit) {
			break
		}
	}
}

func buildPrompt(s *session.Session) string {
	promptStr := "chess"

	if s.CurrentGame != "" {
		promptStr += display.Yellow + " [" + display.Reset +
			display.Paint(display.White, s.ShortGameID()) + display.Yellow + "]"
	}

	if s.CurrentGameState != nil {
		if fields := strings.Fields(s.CurrentGameState.FEN); len(fields) > 1 {
			promptStr += " - Turn:" + display.ColorForTurn(fields[1])
		}
	}

	return display.Prompt(promptStr)
}
