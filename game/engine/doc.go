// Package engine provides the core rules of the shared pixel board.
//
// The engine package implements:
//   - Coordinate validation for flat indexes and (x, y) pairs
//   - The per-player cooldown between two successful paints
//   - The Storage port the engine reads and writes through
//   - The paint error taxonomy
//
// Core Types:
//
// The Engine interface defines the board operations, implemented by
// GameEngine. Storage is the port to the grid and the player registry;
// backends live in the storage package. Settings holds the immutable board
// configuration.
//
// Usage:
//
//	store := storage.NewMemory()
//	gameEngine, err := engine.NewEngine(engine.Settings{
//		Width:     10,
//		Height:    10,
//		FillColor: engine.White,
//		Cooldown:  10 * time.Second,
//	}, store)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	player, _ := gameEngine.CreatePlayer("alice")
//	err = gameEngine.Paint(0, player.ID, engine.Red)
//
// Rules:
//
// A player is eligible to paint when it never painted or when at least the
// cooldown has elapsed since its last successful paint. A rejected paint
// reports the remaining wait in a *CooldownError. Cells are addressed
// row-major: index = x + y*width.
//
// GameEngine holds no lock. Whoever serves concurrent callers wraps the single
// engine instance in one mutual exclusion boundary so that the cooldown check
// and the following write happen as a unit.
package engine
