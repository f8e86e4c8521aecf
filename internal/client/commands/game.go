package commands

import (
	"context"
	"fmt"
	"strings"

	"chessd/internal/client/display"
	"chessd/internal/client/session"
	"chessd/internal/server/core"
)

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new game",
		Usage:       "new",
		Group:       groupGame,
		Handler:     r.newGameHandler,
	})

	r.Register(&Command{
		Name:        "list",
		ShortName:   "l",
		Description: "List stored games",
		Usage:       "list",
		Group:       groupGame,
		Handler:     r.listGamesHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Join/set current game ID",
		Usage:       "join <gameId>",
		Group:       groupGame,
		Handler:     r.joinGameHandler,
	})

	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Submit a position and ask the engine for the best move",
		Usage:       "move [fen]  (defaults to the game's stored position)",
		Group:       groupGame,
		Handler:     r.moveHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and game state",
		Usage:       "show",
		Group:       groupGame,
		Handler:     r.showBoardHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw game JSON",
		Usage:       "state",
		Group:       groupGame,
		Handler:     r.gameStateHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete a game",
		Usage:       "delete [gameId]",
		Group:       groupGame,
		Handler:     r.deleteGameHandler,
	})
}

// ask prompts for a value and returns the trimmed answer or def when empty
func (r *Registry) ask(prompt, def string) (string, error) {
	answer, err := r.readLine(fmt.Sprintf("%s%s [%s]: %s", display.Yellow, prompt, def, display.Reset))
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		return answer, nil
	}
	return def, nil
}

func (r *Registry) newGameHandler(ctx context.Context, s *session.Session, _ []string) error {
	fmt.Fprintln(r.out, "\n"+display.Cyan+"Creating new game..."+display.Reset)

	req := &core.CreateGameRequest{}
	var err error
	if req.WhitePlayerName, err = r.ask("White player name", "white"); err != nil {
		return err
	}
	if req.BlackPlayerName, err = r.ask("Black player name", "black"); err != nil {
		return err
	}
	if req.GameType, err = r.ask("Game type", "standard"); err != nil {
		return err
	}

	resp, err := s.Client.CreateGame(ctx, req)
	if err != nil {
		return err
	}

	s.SetCurrentGame(resp.GameID)

	fmt.Fprintf(r.out, "%sGame created: %s%s\n", display.Green, resp.GameID, display.Reset)
	fmt.Fprintf(r.out, "%sCurrent game set to: %s%s\n", display.Cyan, resp.GameID, display.Reset)
	return nil
}

func (r *Registry) listGamesHandler(ctx context.Context, s *session.Session, _ []string) error {
	games, err := s.Client.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Fprintln(r.out, "No games found")
		return nil
	}

	for _, g := range games {
		marker := " "
		if g.GameID == s.CurrentGame {
			marker = display.Paint(display.Green, "*")
		}
		fmt.Fprintf(r.out, "%s %s  %s vs %s  (%s)  %s\n", marker, g.GameID,
			display.Paint(display.Blue, g.WhitePlayerName),
			display.Paint(display.Red, g.BlackPlayerName),
			g.GameType, g.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (r *Registry) joinGameHandler(ctx context.Context, s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <gameId>")
	}

	gameID := args[0]
	resp, err := s.Client.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	s.SetCurrentGame(gameID)
	s.CurrentGameState = resp

	fmt.Fprintf(r.out, "%sJoined game: %s%s\n", display.Green, gameID, display.Reset)
	fmt.Fprintf(r.out, "%s vs %s | FEN: %s\n", resp.WhitePlayerName, resp.BlackPlayerName, resp.FEN)
	return nil
}

func (r *Registry) moveHandler(ctx context.Context, s *session.Session, args []string) error {
	if s.CurrentGame == "" {
		return fmt.Errorf("no current game, use 'new' or 'join'")
	}

	// A FEN spans six whitespace-separated fields
	fen := strings.Join(args, " ")
	if fen == "" {
		game, err := s.Client.GetGame(ctx, s.CurrentGame)
		if err != nil {
			return err
		}
		s.CurrentGameState = game
		fen = game.FEN
	}

	fmt.Fprintf(r.out, "%sEngine is thinking...%s\n", display.Magenta, display.Reset)
	resp, err := s.Client.MakeMove(ctx, s.CurrentGame, fen)
	if err != nil {
		return err
	}

	s.LastBestMove = resp.BestMove
	if s.CurrentGameState != nil {
		s.CurrentGameState.FEN = resp.FEN
	}

	fmt.Fprintf(r.out, "%sBest move: %s%s\n", display.Green, resp.BestMove, display.Reset)
	return nil
}

func (r *Registry) showBoardHandler(ctx context.Context, s *session.Session, _ []string) error {
	if s.CurrentGame == "" {
		return fmt.Errorf("no current game, use 'new' or 'join'")
	}

	resp, err := s.Client.GetBoard(ctx, s.CurrentGame)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	display.RenderBoard(r.out, resp.Board)

	fmt.Fprintf(r.out, "\nFEN: %s\n", resp.FEN)
	if fields := strings.Fields(resp.FEN); len(fields) > 1 {
		fmt.Fprintf(r.out, "Turn: %s\n", display.ColorForTurn(fields[1]))
	}
	if s.LastBestMove != "" {
		fmt.Fprintf(r.out, "Last best move: %s\n", s.LastBestMove)
	}
	return nil
}

func (r *Registry) gameStateHandler(ctx context.Context, s *session.Session, _ []string) error {
	if s.CurrentGame == "" {
		return fmt.Errorf("no current game, use 'new' or 'join'")
	}

	resp, err := s.Client.GetGame(ctx, s.CurrentGame)
	if err != nil {
		return err
	}
	s.CurrentGameState = resp

	fmt.Fprintf(r.out, "%sGame State:%s\n", display.Cyan, display.Reset)
	display.PrettyPrintJSON(r.out, resp)
	return nil
}

func (r *Registry) deleteGameHandler(ctx context.Context, s *session.Session, args []string) error {
	gameID := s.CurrentGame
	if len(args) > 0 {
		gameID = args[0]
	}
	if gameID == "" {
		return fmt.Errorf("usage: delete [gameId]")
	}

	if err := s.Client.DeleteGame(ctx, gameID); err != nil {
		return err
	}

	if gameID == s.CurrentGame {
		s.SetCurrentGame("")
	}

	fmt.Fprintf(r.out, "%sGame deleted: %s%s\n", display.Green, gameID, display.Reset)
	return nil
}
