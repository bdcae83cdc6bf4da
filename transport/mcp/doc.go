// Package mcp provides a Model Context Protocol server for the pixel board.
//
// The server is a thin client of the REST API: every tool performs one or two
// HTTP calls and formats the answer as text for AI agents.
//
// MCP Tools:
//   - create_player: Register a player
//   - get_player: Player details and remaining cooldown
//   - paint: Paint one cell by index or by x/y
//   - get_board: Board rendered as letters
//   - board_info: Size, cooldown and colors
//   - game_instructions: Rules of the board
//
// Transport Modes:
//
// The same server is exposed two ways by the entry point:
//   - Stdio: for local MCP clients (stdio-mcp command)
//   - HTTP: POST /mcp on the API server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
