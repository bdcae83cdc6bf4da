package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
)

// APIError is a non-2xx answer of the REST API
type APIError struct {
	Status           int
	Code             string
	Message          string
	RemainingSeconds int
}

func (e *APIError) Error() string {
	if e.Code == "cooldown_active" {
		return fmt.Sprintf("%s (retry in %ds)", e.Message, e.RemainingSeconds)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pixel Board",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pixel Board - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Paint cells of a shared board. Every player may paint one cell, then has to
wait for the cooldown before painting again.

AVAILABLE TOOLS:
- create_player: Register a player and get its id
- get_player: Player details and remaining cooldown
- paint: Paint one cell, by index or by x/y
- get_board: The board rendered as text
- board_info: Board size, cooldown and colors
- game_instructions: Rules, addressing and color letters`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_player",
		Description: "Register a new player. Names do not have to be unique; keep the returned id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name of the player",
				},
			},
			Required: []string{"name"},
		},
	}, c.handleCreatePlayer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_player",
		Description: "Get a player and the seconds left before it can paint again",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player id returned by create_player",
				},
			},
			Required: []string{"player_id"},
		},
	}, c.handleGetPlayer)

	colorNames := make([]string, len(engine.Colors))
	for i, color := range engine.Colors {
		colorNames[i] = string(color)
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "paint",
		Description: "Paint one cell. Address it with index, or with x and y (index = x + y*width).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player id returned by create_player",
				},
				"color": map[string]interface{}{
					"type":        "string",
					"enum":        colorNames,
					"description": "Color to paint",
				},
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "Row-major cell index",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, starting at 0",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, starting at 0",
				},
			},
			Required: []string{"player_id", "color"},
		},
	}, c.handlePaint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_board",
		Description: "Get the board as text, one letter per cell and one row per line",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGetBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_info",
		Description: "Get the board size, the cooldown and the available colors",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleBoardInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error            string `json:"error"`
			Code             string `json:"code"`
			RemainingSeconds int    `json:"remaining_seconds"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, &APIError{
			Status:           resp.StatusCode,
			Code:             errResp.Code,
			Message:          errResp.Error,
			RemainingSeconds: errResp.RemainingSeconds,
		}
	}

	return resp, nil
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) apiText(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// intArg reads an optional integer argument; JSON numbers arrive as float64.
// ok is false when the argument is absent; a present value that is not a
// whole number is an error.
func intArg(args map[string]interface{}, name string) (value int, ok bool, err error) {
	raw, present := args[name]
	if !present || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), true, nil
		}
	case int:
		return v, true, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true, nil
		}
	}
	return 0, false, fmt.Errorf("%s must be an integer, got %v", name, raw)
}

// Tool handlers

func (c *Client) handleCreatePlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)

	var player service.PlayerInfo
	if err := c.apiCall(ctx, "POST", "/api/players", map[string]string{"name": name}, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created player %q with id %d. Use player_id=%d to paint.\n", player.Name, player.ID, player.ID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	playerID, ok, err := intArg(args, "player_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	var player service.PlayerInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/players/%d", playerID), nil, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayer(&player)), nil
}

func (c *Client) handlePaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	playerID, ok, err := intArg(args, "player_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}
	color, _ := args["color"].(string)

	body := map[string]interface{}{
		"player_id": playerID,
		"color":     color,
	}

	index, hasIndex, err := intArg(args, "index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, okX, err := intArg(args, "x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, okY, err := intArg(args, "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var path string
	if hasIndex {
		path = fmt.Sprintf("/api/pixels/%d", index)
	} else {
		if !okX || !okY {
			return mcp.NewToolResultError("either index or both x and y are required"), nil
		}
		path = "/api/pixels"
		body["x"] = x
		body["y"] = y
	}

	var result service.PaintResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPaintResult(&result)), nil
}

func (c *Client) handleGetBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.BoardInfo
	if err := c.apiCall(ctx, "GET", "/api/info", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rendered, err := c.apiText(ctx, "/api/board/render")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Board %dx%d\n\n", info.Width, info.Height)
	sb.WriteString(rendered)
	sb.WriteString("\n")
	sb.WriteString(colorLegend())
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleBoardInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.BoardInfo
	if err := c.apiCall(ctx, "GET", "/api/info", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoardInfo(&info)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `# Pixel Board

## Rules
- The board is a grid of colored cells, all starting with the same color.
- Register once with create_player and remember the id.
- A paint changes exactly one cell. The last paint on a cell wins.
- After a successful paint the player must wait for the cooldown (see board_info).
  A paint during the cooldown is rejected and reports the seconds left.
- Rejected paints (bad coordinates, unknown player, cooldown) change nothing
  and do not restart the cooldown.

## Addressing
- Cells are numbered row by row: index = x + y*width.
- x is the column (0 to width-1), y is the row (0 to height-1).
- paint accepts either index, or x and y.

## Colors
` + colorLegend() + `
## Tips
- Check get_player before painting to see cooldown_remaining_seconds.
- get_board shows the whole board; the top-left cell is index 0.
`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func colorLegend() string {
	var sb strings.Builder
	for _, color := range engine.Colors {
		fmt.Fprintf(&sb, "  %c = %s\n", color.Letter(), color)
	}
	return sb.String()
}

func formatPlayer(player *service.PlayerInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Player %d: %s\n", player.ID, player.Name)
	if player.LastPlayed != nil {
		fmt.Fprintf(&sb, "Last painted: %s\n", player.LastPlayed.Format(time.RFC3339))
	} else {
		sb.WriteString("Last painted: never\n")
	}
	if player.CanPaint {
		sb.WriteString("✓ Can paint now\n")
	} else {
		fmt.Fprintf(&sb, "⏳ Cooling down: %ds left\n", player.CooldownRemainingSeconds)
	}
	return sb.String()
}

func formatPaintResult(result *service.PaintResult) string {
	return fmt.Sprintf("✓ Painted cell %d (x=%d, y=%d) %s for player %d\n",
		result.Index, result.X, result.Y, result.Color, result.PlayerID)
}

func formatBoardInfo(info *service.BoardInfo) string {
	colors := make([]string, len(info.Colors))
	for i, color := range info.Colors {
		colors[i] = string(color)
	}
	return fmt.Sprintf("Width: %d\nHeight: %d\nCells: %d (index 0 to %d)\nCooldown: %gs\nColors: %s\n",
		info.Width, info.Height, info.Width*info.Height, info.Width*info.Height-1,
		info.CooldownSeconds, strings.Join(colors, ", "))
}
