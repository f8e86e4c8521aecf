package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"chessd/internal/server/storage/sqlite"

	"github.com/spf13/cobra"
)

var (
	dbPath      string
	dbQueryGame string
	dbOutcome   string
	dbGames     bool
)

func init() {
	dbCmd.PersistentFlags().StringVar(&dbPath, "path", "", "database file path (required)")
	_ = dbCmd.MarkPersistentFlagRequired("path")

	dbQueryCmd.Flags().StringVar(&dbQueryGame, "gameId", "", "game ID to filter (optional, * for all)")
	dbQueryCmd.Flags().StringVar(&dbOutcome, "outcome", "", "calculation outcome to filter (optional, * for all)")
	dbQueryCmd.Flags().BoolVar(&dbGames, "games", false, "list stored games instead of calculations")

	dbCmd.AddCommand(dbInitCmd, dbDeleteCmd, dbQueryCmd)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the SQLite game store and audit trail",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.NewStore(dbPath, false, nil)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		defer store.Close()

		if err := store.InitDB(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database initialized at: %s\n", dbPath)
		return nil
	},
}

var dbDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the database file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.NewStore(dbPath, false, nil)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		if err := store.DeleteDB(); err != nil {
			return fmt.Errorf("failed to delete database: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database deleted: %s\n", dbPath)
		return nil
	},
}

var dbQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print stored games or engine calculations",
	Long: `Print the calculation audit trail, newest first.

Examples:
  chessd db query --path chess.db
  chessd db query --path chess.db --outcome timeout
  chessd db query --path chess.db --games`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.NewStore(dbPath, false, nil)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()

		if dbGames {
			return printGames(cmd, store)
		}
		return printCalculations(cmd.OutOrStdout(), store, dbQueryGame, dbOutcome)
	},
}

func printGames(cmd *cobra.Command, store *sqlite.Store) error {
	out := cmd.OutOrStdout()
	games, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite\tBlack\tType\tCreated\tFEN")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(g.ID),
			g.WhitePlayerName,
			g.BlackPlayerName,
			g.GameType,
			g.CreatedAt.Format("2006-01-02 15:04:05"),
			g.FEN,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func printCalculations(out io.Writer, store *sqlite.Store, gameID, outcome string) error {
	records, err := store.QueryCalculations(gameID, outcome)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No calculations found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Request ID\tGame ID\tOutcome\tMove\tDuration\tTime")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range records {
		move := r.Move
		if move == "" {
			move = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.RequestID),
			shortID(r.GameID),
			r.Outcome,
			move,
			r.Duration,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d calculation(s)\n", len(records))
	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
