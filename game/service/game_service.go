package service

import (
	"context"
	"errors"
)

// ErrInvalidName is returned when a player is registered without a name
var ErrInvalidName = errors.New("player name is required")

// Events published to the EventSink
const (
	EventPixelPainted  = "pixel_painted"
	EventPlayerCreated = "player_created"
)

// EventSink receives an event for every committed change. It is called with
// the service lock held, so events arrive in commit order. It must not call
// back into the service.
type EventSink interface {
	Broadcast(event string, data interface{})
}

// GameService defines all board operations offered to the transports
type GameService interface {
	// Players
	CreatePlayer(ctx context.Context, name string) (*PlayerInfo, error)
	GetPlayer(ctx context.Context, playerID int) (*PlayerInfo, error)

	// Painting
	Paint(ctx context.Context, req PaintRequest) (*PaintResult, error)

	// Board state
	GetBoard(ctx context.Context) (*BoardInfo, error)
	GetInfo(ctx context.Context) *BoardInfo

	// Snapshot calls fn with the board while holding the lock: no change is
	// committed, and no event published, until fn returns.
	Snapshot(ctx context.Context, fn func(board *BoardInfo)) error
}
