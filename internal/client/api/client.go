// Package api is a thin REST client for the chessd API with request tracing to a terminal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"chessd/internal/client/display"
	"chessd/internal/server/core"
)

// Error is a non-2xx reply from the server
type Error struct {
	Status    int
	RequestID string
	Response  core.ErrorResponse
}

func (e *Error) Error() string {
	if e.Response.Code != "" {
		return fmt.Sprintf("request failed with status %d: %s (%s)", e.Status, e.Response.Error, e.Response.Code)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Msg   string `json:"msg"`
	Time  int64  `json:"time"`
	Audit string `json:"audit"`
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Move calculations may take the full engine timeout
			Timeout: 90 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(u string) {
	c.BaseURL = strings.TrimRight(u, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyJSON []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyJSON = data
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.Out, "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if bodyJSON != nil {
		if c.Verbose {
			fmt.Fprintf(c.Out, "%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, display.PrettyBytes(bodyJSON))
		} else {
			fmt.Fprintf(c.Out, "%s%s%s\n", display.Blue, bodyJSON, display.Reset)
		}
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.Out, "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.Out, "%s[%d %s]%s %s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode),
		display.Reset, time.Since(start).Round(time.Millisecond))

	requestID := resp.Header.Get("requestId")
	if c.Verbose {
		if requestID != "" {
			fmt.Fprintf(c.Out, "%sRequest ID: %s%s\n", display.Cyan, requestID, display.Reset)
		}
		if len(respBody) > 0 {
			fmt.Fprintf(c.Out, "%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, display.PrettyBytes(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, RequestID: requestID}
		if err := json.Unmarshal(respBody, &apiErr.Response); err != nil {
			apiErr.Response.Error = strings.TrimSpace(string(respBody))
		}
		if !c.Verbose {
			fmt.Fprintf(c.Out, "%sError: %s%s\n", display.Red, apiErr.Response.Error, display.Reset)
			if apiErr.Response.Code != "" {
				fmt.Fprintf(c.Out, "%sCode: %s%s\n", display.Red, apiErr.Response.Code, display.Reset)
			}
			if apiErr.Response.Details != "" {
				fmt.Fprintf(c.Out, "%sDetails: %s%s\n", display.Red, apiErr.Response.Details, display.Reset)
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			fmt.Fprintf(c.Out, "%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			fmt.Fprintf(c.Out, "%sRaw response: %s%s\n", display.Green, string(respBody), display.Reset)
			return err
		}
	}

	return nil
}

// API Methods

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

// DeepHealth runs the engine readiness probe on the server
func (c *Client) DeepHealth(ctx context.Context) (*core.MessageResponse, error) {
	var resp core.MessageResponse
	err := c.doRequest(ctx, http.MethodGet, "/health/deep", nil, &resp)
	return &resp, err
}

func (c *Client) CreateGame(ctx context.Context, req *core.CreateGameRequest) (*core.CreateGameResponse, error) {
	var resp core.CreateGameResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) ListGames(ctx context.Context) ([]core.GameResponse, error) {
	var resp []core.GameResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games", nil, &resp)
	return resp, err
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+url.PathEscape(gameID), nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/v1/games/"+url.PathEscape(gameID), nil, nil)
}

// MakeMove submits a position and returns the engine's best move for it
func (c *Client) MakeMove(ctx context.Context, gameID, fen string) (*core.MoveResponse, error) {
	var resp core.MoveResponse
	err := c.doRequest(ctx, http.MethodPut, "/api/v1/games/"+url.PathEscape(gameID)+"/move",
		&core.MoveRequest{FEN: fen}, &resp)
	return &resp, err
}

func (c *Client) GetBoard(ctx context.Context, gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+url.PathEscape(gameID)+"/board", nil, &resp)
	return &resp, err
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(ctx context.Context, method, path, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}

	return c.doRequest(ctx, method, path, bodyData, nil)
}
