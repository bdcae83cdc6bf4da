package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/pixelboard/game/engine"
	"gorm.io/gorm"
)

const gormInsertBatch = 500

// cellRecord is one row of the cells table
type cellRecord struct {
	Idx   int    `gorm:"primaryKey;autoIncrement:false"`
	Color string `gorm:"size:16;not null"`
}

func (cellRecord) TableName() string {
	return "cells"
}

// playerRecord is one row of the players table
type playerRecord struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"size:255;not null"`
	LastPlayed *time.Time
}

func (playerRecord) TableName() string {
	return "players"
}

func (r playerRecord) toPlayer() engine.Player {
	p := engine.Player{ID: r.ID, Name: r.Name}
	if r.LastPlayed != nil {
		at := *r.LastPlayed
		p.LastPlayed = &at
	}
	return p
}

// Gorm stores the board in a SQL database through GORM
type Gorm struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGorm migrates the schema and returns the store
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if db == nil {
		return nil, errors.New("gorm: database connection cannot be nil")
	}
	if err := db.AutoMigrate(&cellRecord{}, &playerRecord{}); err != nil {
		return nil, fmt.Errorf("gorm: failed to migrate schema: %w", err)
	}
	return &Gorm{db: db, timeout: DefaultOpTimeout}, nil
}

func (g *Gorm) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.timeout)
}

// InitializeGrid replaces every cell row inside one transaction
func (g *Gorm) InitializeGrid(width, height int, fill engine.Color) error {
	ctx, cancel := g.opContext()
	defer cancel()

	cells := make([]cellRecord, width*height)
	for i := range cells {
		cells[i] = cellRecord{Idx: i, Color: string(fill)}
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&cellRecord{}).Error; err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.CreateInBatches(cells, gormInsertBatch).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: failed to initialize grid: %w", err)
	}
	return nil
}

// ReadGrid returns all cells ordered by index
func (g *Gorm) ReadGrid() ([]engine.Color, error) {
	ctx, cancel := g.opContext()
	defer cancel()

	var cells []cellRecord
	if err := g.db.WithContext(ctx).Order("idx").Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("gorm: failed to read grid: %w", err)
	}

	grid := make([]engine.Color, len(cells))
	for i, c := range cells {
		grid[i] = engine.Color(c.Color)
	}
	return grid, nil
}

// WriteCell updates one cell row
func (g *Gorm) WriteCell(index int, color engine.Color) error {
	ctx, cancel := g.opContext()
	defer cancel()

	db := g.db.WithContext(ctx)

	// RowsAffected is 0 on MySQL when the color does not change, so existence is checked first
	var count int64
	if err := db.Model(&cellRecord{}).Where("idx = ?", index).Count(&count).Error; err != nil {
		return fmt.Errorf("gorm: failed to look up cell %d: %w", index, err)
	}
	if count == 0 {
		return engine.ErrIndexOutOfRange
	}

	if err := db.Model(&cellRecord{}).Where("idx = ?", index).Update("color", string(color)).Error; err != nil {
		return fmt.Errorf("gorm: failed to write cell %d: %w", index, err)
	}
	return nil
}

// CreatePlayer inserts a player row; the database assigns the id
func (g *Gorm) CreatePlayer(name string) (engine.Player, error) {
	ctx, cancel := g.opContext()
	defer cancel()

	record := playerRecord{Name: name}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return engine.Player{}, fmt.Errorf("gorm: failed to create player: %w", err)
	}
	return record.toPlayer(), nil
}

// RecordPlay updates the last_played column of an existing player
func (g *Gorm) RecordPlay(playerID int, at time.Time) error {
	ctx, cancel := g.opContext()
	defer cancel()

	db := g.db.WithContext(ctx)

	var record playerRecord
	if err := db.First(&record, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.ErrPlayerNotFound
		}
		return fmt.Errorf("gorm: failed to find player %d: %w", playerID, err)
	}

	if err := db.Model(&record).Update("last_played", at).Error; err != nil {
		return fmt.Errorf("gorm: failed to record play for player %d: %w", playerID, err)
	}
	return nil
}

// GetPlayer reads one player row
func (g *Gorm) GetPlayer(playerID int) (engine.Player, bool, error) {
	ctx, cancel := g.opContext()
	defer cancel()

	var record playerRecord
	if err := g.db.WithContext(ctx).First(&record, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.Player{}, false, nil
		}
		return engine.Player{}, false, fmt.Errorf("gorm: failed to get player %d: %w", playerID, err)
	}
	return record.toPlayer(), true, nil
}
