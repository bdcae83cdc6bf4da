package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for board operations
type Engine interface {
	// Painting
	Paint(index, playerID int, color Color) error
	PaintAt(x, y, playerID int, color Color) error

	// Board state
	Board() ([]Color, error)
	Width() int
	Height() int
	Cooldown() time.Duration

	// Players
	CreatePlayer(name string) (Player, error)
	Player(playerID int) (Player, error)
	CooldownRemaining(playerID int) (time.Duration, error)

	// Addressing
	Index(x, y int) (int, bool)
	Coordinates(index int) (x, y int, ok bool)
}

// GameEngine implements the Engine interface. It performs no locking of its
// own; callers serving concurrent requests must serialize access to it.
type GameEngine struct {
	settings Settings
	store    Storage
	clock    Clock
}

// Option customizes a GameEngine at construction
type Option func(*GameEngine)

// WithClock replaces the system clock, mainly for tests
func WithClock(clock Clock) Option {
	return func(e *GameEngine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine validates the settings, initializes the grid through the store and
// returns the engine that owns that store from now on.
func NewEngine(settings Settings, store Storage, opts ...Option) (*GameEngine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: storage is required", ErrInvalidSettings)
	}

	e := &GameEngine{
		settings: settings,
		store:    store,
		clock:    SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := store.InitializeGrid(settings.Width, settings.Height, settings.FillColor); err != nil {
		return nil, fmt.Errorf("failed to initialize grid: %w", err)
	}

	return e, nil
}

// Paint sets the cell at index to color on behalf of the player, provided the
// index is on the board, the player exists and is not cooling down.
func (e *GameEngine) Paint(index, playerID int, color Color) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}
	if index < 0 || index >= e.settings.Size() {
		return ErrInvalidCoordinates
	}

	player, err := e.Player(playerID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if remaining := e.remaining(player, now); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}

	// The player was found above, so neither write may fail
	if err := e.store.RecordPlay(playerID, now); err != nil {
		return fmt.Errorf("%w: recording play for player %d: %w", ErrInternal, playerID, err)
	}
	if err := e.store.WriteCell(index, color); err != nil {
		return fmt.Errorf("%w: writing cell %d: %w", ErrInternal, index, err)
	}

	return nil
}

// PaintAt paints the cell at column x, row y
func (e *GameEngine) PaintAt(x, y, playerID int, color Color) error {
	index, ok := e.Index(x, y)
	if !ok {
		if !color.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidColor, color)
		}
		return ErrInvalidCoordinates
	}
	return e.Paint(index, playerID, color)
}

// Board returns the current grid, row-major
func (e *GameEngine) Board() ([]Color, error) {
	grid, err := e.store.ReadGrid()
	if err != nil {
		return nil, fmt.Errorf("failed to read grid: %w", err)
	}
	return grid, nil
}

// Width returns the board width
func (e *GameEngine) Width() int {
	return e.settings.Width
}

// Height returns the board height
func (e *GameEngine) Height() int {
	return e.settings.Height
}

// Cooldown returns the wait enforced between two paints of the same player
func (e *GameEngine) Cooldown() time.Duration {
	return e.settings.Cooldown
}

// Settings returns the configuration the engine was built with
func (e *GameEngine) Settings() Settings {
	return e.settings
}

// CreatePlayer registers a new player
func (e *GameEngine) CreatePlayer(name string) (Player, error) {
	player, err := e.store.CreatePlayer(name)
	if err != nil {
		return Player{}, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// Player looks up a player by id
func (e *GameEngine) Player(playerID int) (Player, error) {
	player, ok, err := e.store.GetPlayer(playerID)
	if err != nil {
		return Player{}, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return player, nil
}

// CooldownRemaining reports how long the player must still wait; zero when eligible
func (e *GameEngine) CooldownRemaining(playerID int) (time.Duration, error) {
	player, err := e.Player(playerID)
	if err != nil {
		return 0, err
	}
	return e.remaining(player, e.clock.Now()), nil
}

// Index converts column/row coordinates to a cell index
func (e *GameEngine) Index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= e.settings.Width || y >= e.settings.Height {
		return 0, false
	}
	return x + y*e.settings.Width, true
}

// Coordinates converts a cell index back to column/row
func (e *GameEngine) Coordinates(index int) (x, y int, ok bool) {
	if index < 0 || index >= e.settings.Size() {
		return 0, 0, false
	}
	return index % e.settings.Width, index / e.settings.Width, true
}

// remaining computes the cooldown left at now. Timestamps restored from a
// serialized backend have no monotonic reading; a negative elapsed time
// (wall clock stepped back) counts as no time elapsed.
func (e *GameEngine) remaining(player Player, now time.Time) time.Duration {
	if player.LastPlayed == nil {
		return 0
	}
	elapsed := now.Sub(*player.LastPlayed)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= e.settings.Cooldown {
		return 0
	}
	return e.settings.Cooldown - elapsed
}
