package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
)

// APIError is a non-2xx answer from the board API
type APIError struct {
	Status      int
	Code        string `json:"code"`
	Message     string `json:"error"`
	RemainingMs int64  `json:"remaining_ms"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: %d - %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error: %d %s - %s", e.Status, e.Code, e.Message)
}

// Cooldown returns how long to wait before retrying, or 0 when the error is
// not a cooldown rejection.
func (e *APIError) Cooldown() time.Duration {
	if e.Code != "cooldown_active" {
		return 0
	}
	return time.Duration(e.RemainingMs) * time.Millisecond
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreatePlayer(ctx context.Context, name string) (*service.PlayerInfo, error) {
	var player service.PlayerInfo
	if err := c.do(ctx, http.MethodPost, "/api/players", map[string]string{"name": name}, &player); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return &player, nil
}

func (c *Client) Board(ctx context.Context) (*service.BoardInfo, error) {
	var board service.BoardInfo
	if err := c.do(ctx, http.MethodGet, "/api/board", nil, &board); err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

func (c *Client) Paint(ctx context.Context, playerID, index int, color engine.Color) (*service.PaintResult, error) {
	body := map[string]interface{}{"player_id": playerID, "color": color}

	var result service.PaintResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/pixels/%d", index), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
