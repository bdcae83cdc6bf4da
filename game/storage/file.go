package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/engine"
)

// persistedBoard is the JSON document written by File
type persistedBoard struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Grid      []engine.Color  `json:"grid"`
	NextID    int             `json:"next_id"`
	Players   []engine.Player `json:"players"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// File keeps the board in memory and mirrors every change to a JSON file.
// Players, and with them their cooldowns, are reloaded when the file is
// reopened; the grid is reset by InitializeGrid like any other backend.
type File struct {
	mem    *Memory
	width  int
	height int
	path   string
}

// NewFile opens (or creates) the JSON file at path
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := &File{
		mem:  NewMemory(),
		path: path,
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	return f, nil
}

// Path returns the file backing the store
func (f *File) Path() string {
	return f.path
}

// InitializeGrid resets the grid and persists it
func (f *File) InitializeGrid(width, height int, fill engine.Color) error {
	prevGrid, prevWidth, prevHeight := f.mem.grid, f.width, f.height
	if err := f.mem.InitializeGrid(width, height, fill); err != nil {
		return err
	}
	f.width, f.height = width, height
	if err := f.save(); err != nil {
		f.mem.grid, f.width, f.height = prevGrid, prevWidth, prevHeight
		return err
	}
	return nil
}

// ReadGrid returns a copy of the grid
func (f *File) ReadGrid() ([]engine.Color, error) {
	return f.mem.ReadGrid()
}

// WriteCell sets a single cell and persists the board
// A failed save leaves the cell as it was.
func (f *File) WriteCell(index int, color engine.Color) error {
	if index < 0 || index >= len(f.mem.grid) {
		return engine.ErrIndexOutOfRange
	}
	prev := f.mem.grid[index]
	if err := f.mem.WriteCell(index, color); err != nil {
		return err
	}
	if err := f.save(); err != nil {
		f.mem.grid[index] = prev
		return err
	}
	return nil
}

// CreatePlayer registers a player and persists the registry
func (f *File) CreatePlayer(name string) (engine.Player, error) {
	player, err := f.mem.CreatePlayer(name)
	if err != nil {
		return engine.Player{}, err
	}
	if err := f.save(); err != nil {
		delete(f.mem.players, player.ID)
		f.mem.nextID = player.ID
		return engine.Player{}, err
	}
	return player, nil
}

// RecordPlay stores the player's last play time and persists it
// A failed save keeps the previous play time, so no cooldown starts.
func (f *File) RecordPlay(playerID int, at time.Time) error {
	player, exists := f.mem.players[playerID]
	if !exists {
		return engine.ErrPlayerNotFound
	}
	prev := player.LastPlayed
	if err := f.mem.RecordPlay(playerID, at); err != nil {
		return err
	}
	if err := f.save(); err != nil {
		player.LastPlayed = prev
		return err
	}
	return nil
}

// GetPlayer returns a copy of the player record
func (f *File) GetPlayer(playerID int) (engine.Player, bool, error) {
	return f.mem.GetPlayer(playerID)
}

// load restores the player registry and grid from disk, if the file exists
func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read board file: %w", err)
	}

	var board persistedBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return fmt.Errorf("failed to unmarshal board file: %w", err)
	}

	f.width, f.height = board.Width, board.Height
	f.mem.grid = board.Grid
	for i := range board.Players {
		p := board.Players[i]
		f.mem.players[p.ID] = &p
		if p.ID >= f.mem.nextID {
			f.mem.nextID = p.ID + 1
		}
	}
	if board.NextID > f.mem.nextID {
		f.mem.nextID = board.NextID
	}

	logrus.WithFields(logrus.Fields{
		"path":    f.path,
		"players": len(board.Players),
	}).Info("Loaded board file")

	return nil
}

// save writes the board to a temporary file and renames it over the old one
func (f *File) save() error {
	players := make([]engine.Player, 0, len(f.mem.players))
	for _, p := range f.mem.players {
		players = append(players, copyPlayer(p))
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	board := persistedBoard{
		Width:     f.width,
		Height:    f.height,
		Grid:      f.mem.grid,
		NextID:    f.mem.nextID,
		Players:   players,
		UpdatedAt: time.Now(),
	}

	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write board file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace board file: %w", err)
	}

	return nil
}
