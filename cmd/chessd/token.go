package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"chessd/internal/server/config"
	chesshttp "chessd/internal/server/http"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the client name (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 7*24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Long: `Issue an HS256 bearer token signed with auth.secret.

When no secret is configured the secret is read from the terminal.

Examples:
  chessd token --subject frontend
  CHESSD_AUTH_SECRET=... chessd token --subject ci --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return errors.New("auth.secret not configured and stdin is not a terminal")
		}
		fmt.Fprint(os.Stderr, "Signing secret: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		secret = string(raw)
	}
	if len(secret) < config.MinSecretLength {
		return fmt.Errorf("secret must be at least %d characters", config.MinSecretLength)
	}

	token, err := chesshttp.IssueToken([]byte(secret), tokenSubject, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
