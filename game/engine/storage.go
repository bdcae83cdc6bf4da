package engine

import "time"

// Storage is the port through which the engine reads and writes the grid and
// the player registry. Implementations hold no game rules.
type Storage interface {
	// InitializeGrid (re)sets the grid to width*height cells of the fill color
	InitializeGrid(width, height int, fill Color) error

	// ReadGrid returns a copy of the grid in row-major order
	ReadGrid() ([]Color, error)

	// WriteCell sets one cell; ErrIndexOutOfRange past the end of the grid
	WriteCell(index int, color Color) error

	// CreatePlayer registers a new player under a fresh id. Names may repeat.
	CreatePlayer(name string) (Player, error)

	// RecordPlay sets the player's last play time; ErrPlayerNotFound for unknown ids
	RecordPlay(playerID int, at time.Time) error

	// GetPlayer looks a player up. A missing player is reported with ok=false, not an error.
	GetPlayer(playerID int) (player Player, ok bool, err error)
}

// Clock is the engine's time source
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads time.Now, which carries the monotonic clock reading
var SystemClock Clock = ClockFunc(time.Now)
