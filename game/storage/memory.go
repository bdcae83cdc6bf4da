package storage

import (
	"time"

	"github.com/wricardo/pixelboard/game/engine"
)

// Memory keeps the grid and the players in process memory
type Memory struct {
	grid    []engine.Color
	players map[int]*engine.Player
	nextID  int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		players: make(map[int]*engine.Player),
		nextID:  1,
	}
}

// InitializeGrid replaces the grid with width*height cells of the fill color
func (m *Memory) InitializeGrid(width, height int, fill engine.Color) error {
	grid := make([]engine.Color, width*height)
	for i := range grid {
		grid[i] = fill
	}
	m.grid = grid
	return nil
}

// ReadGrid returns a copy of the grid
func (m *Memory) ReadGrid() ([]engine.Color, error) {
	grid := make([]engine.Color, len(m.grid))
	copy(grid, m.grid)
	return grid, nil
}

// WriteCell sets a single cell
func (m *Memory) WriteCell(index int, color engine.Color) error {
	if index < 0 || index >= len(m.grid) {
		return engine.ErrIndexOutOfRange
	}
	m.grid[index] = color
	return nil
}

// CreatePlayer registers a player under the next id
func (m *Memory) CreatePlayer(name string) (engine.Player, error) {
	player := &engine.Player{
		ID:   m.nextID,
		Name: name,
	}
	m.players[player.ID] = player
	m.nextID++
	return copyPlayer(player), nil
}

// RecordPlay stores the time of the player's latest paint
func (m *Memory) RecordPlay(playerID int, at time.Time) error {
	player, exists := m.players[playerID]
	if !exists {
		return engine.ErrPlayerNotFound
	}
	player.LastPlayed = &at
	return nil
}

// GetPlayer returns a copy of the player record
func (m *Memory) GetPlayer(playerID int) (engine.Player, bool, error) {
	player, exists := m.players[playerID]
	if !exists {
		return engine.Player{}, false, nil
	}
	return copyPlayer(player), true, nil
}

// copyPlayer detaches the returned record from the stored one
func copyPlayer(p *engine.Player) engine.Player {
	out := engine.Player{ID: p.ID, Name: p.Name}
	if p.LastPlayed != nil {
		at := *p.LastPlayed
		out.LastPlayed = &at
	}
	return out
}
