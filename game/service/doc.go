// Package service provides the business logic layer for the pixel board.
//
// The service package implements:
//   - Exclusive access to the single engine of the process
//   - Player registration and lookup
//   - Paint requests addressed by index or by (x, y)
//   - Board snapshots and text rendering
//
// Core Interfaces:
//
// GameService is the interface shared by the HTTP API, the MCP tools and the
// console. Its implementation holds one mutex around every engine call, so the
// bounds, player and cooldown checks of a paint and its writes cannot
// interleave with another request.
//
// Usage:
//
//	store := storage.NewMemory()
//	eng, err := engine.NewEngine(settings, store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService := service.NewGameService(eng)
//
//	player, err := gameService.CreatePlayer(ctx, "alice")
//	index := 0
//	result, err := gameService.Paint(ctx, service.PaintRequest{
//		PlayerID: player.ID,
//		Color:    "red",
//		Index:    &index,
//	})
//
// Errors:
//
// Engine errors are returned unchanged so callers can match them with
// errors.Is; ErrInvalidName is added for empty player names. A cancelled
// context is reported before any work is done.
package service
