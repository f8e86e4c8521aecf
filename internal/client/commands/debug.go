package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chessd/internal/client/display"
	"chessd/internal/client/session"
)

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check server health",
		Usage:       "health",
		Group:       groupDebug,
		Handler:     r.healthHandler,
	})

	r.Register(&Command{
		Name:        "engine",
		ShortName:   "e",
		Description: "Run the engine readiness probe",
		Usage:       "engine",
		Group:       groupDebug,
		Handler:     r.engineHealthHandler,
	})

	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Set API base URL",
		Usage:       "url [apiUrl]",
		Group:       groupDebug,
		Handler:     r.urlHandler,
	})

	r.Register(&Command{
		Name:        "token",
		ShortName:   "t",
		Description: "Set or clear the bearer token",
		Usage:       "token [jwt]",
		Group:       groupDebug,
		Handler:     r.tokenHandler,
	})

	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Description: "Send raw API request",
		Usage:       "raw <method> <path> [json-body]",
		Group:       groupDebug,
		Handler:     r.rawRequestHandler,
	})

	r.Register(&Command{
		Name:        "clear",
		ShortName:   "-",
		Description: "Clear screen",
		Usage:       "clear",
		Group:       groupUtil,
		Handler:     r.clearHandler,
	})
}

func (r *Registry) healthHandler(ctx context.Context, s *session.Session, _ []string) error {
	resp, err := s.Client.Health(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%sServer Health:%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(r.out, "  Status:  %s\n", resp.Msg)
	t := time.Unix(resp.Time, 0)
	fmt.Fprintf(r.out, "  Time:    %s\n", t.Format("2006-01-02 15:04:05"))
	if resp.Audit != "" {
		fmt.Fprintf(r.out, "  Audit:   %s\n", resp.Audit)
	}
	return nil
}

func (r *Registry) engineHealthHandler(ctx context.Context, s *session.Session, _ []string) error {
	resp, err := s.Client.DeepHealth(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%sEngine: %s%s\n", display.Green, resp.Msg, display.Reset)
	return nil
}

func (r *Registry) urlHandler(_ context.Context, s *session.Session, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current API URL: %s\n", s.APIBaseURL)
		return nil
	}

	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	s.SetBaseURL(url)

	fmt.Fprintf(r.out, "%sAPI URL set to: %s%s\n", display.Cyan, url, display.Reset)
	return nil
}

func (r *Registry) tokenHandler(_ context.Context, s *session.Session, args []string) error {
	if len(args) == 0 {
		s.Client.SetToken("")
		fmt.Fprintf(r.out, "%sToken cleared%s\n", display.Cyan, display.Reset)
		return nil
	}

	s.Client.SetToken(args[0])
	fmt.Fprintf(r.out, "%sToken set%s\n", display.Cyan, display.Reset)
	return nil
}

func (r *Registry) rawRequestHandler(ctx context.Context, s *session.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}

	method := strings.ToUpper(args[0])
	path := args[1]

	body := ""
	if len(args) > 2 {
		body = strings.Join(args[2:], " ")
	}

	return s.Client.RawRequest(ctx, method, path, body)
}

func (r *Registry) clearHandler(context.Context, *session.Session, []string) error {
	fmt.Fprint(r.out, "\033[H\033[2J")
	return nil
}
