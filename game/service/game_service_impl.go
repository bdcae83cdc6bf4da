package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/engine"
)

// gameServiceImpl implements the GameService interface. The engine performs
// no locking, so every call to it happens with mu held.
type gameServiceImpl struct {
	engine engine.Engine
	events EventSink
	mu     sync.Mutex
}

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithEventSink publishes player and paint events to sink
func WithEventSink(sink EventSink) Option {
	return func(s *gameServiceImpl) {
		s.events = sink
	}
}

// NewGameService wraps the single engine instance of the process
func NewGameService(eng engine.Engine, opts ...Option) GameService {
	if eng == nil {
		panic("engine cannot be nil for service.GameService")
	}
	s := &gameServiceImpl{engine: eng}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish must be called with mu held
func (s *gameServiceImpl) publish(event string, data interface{}) {
	if s.events != nil {
		s.events.Broadcast(event, data)
	}
}

// CreatePlayer registers a new player
func (s *gameServiceImpl) CreatePlayer(ctx context.Context, name string) (*PlayerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.engine.CreatePlayer(name)
	if err != nil {
		logrus.WithError(err).WithField("name", name).Error("Failed to create player")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"player_id": player.ID,
		"name":      player.Name,
	}).Info("Player created")

	info, err := s.playerInfo(player)
	if err != nil {
		return nil, err
	}
	s.publish(EventPlayerCreated, info)
	return info, nil
}

// GetPlayer returns a player with its current cooldown state
func (s *gameServiceImpl) GetPlayer(ctx context.Context, playerID int) (*PlayerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.engine.Player(playerID)
	if err != nil {
		return nil, err
	}
	return s.playerInfo(player)
}

// Paint applies one paint request. The color is parsed before the lock is
// taken; everything from the bounds check to the cell write runs under it.
func (s *gameServiceImpl) Paint(ctx context.Context, req PaintRequest) (*PaintResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	color, err := engine.ParseColor(req.Color)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.resolveIndex(req)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"player_id": req.PlayerID,
		"index":     index,
		"color":     color,
	})

	if err := s.engine.Paint(index, req.PlayerID, color); err != nil {
		if errors.Is(err, engine.ErrInternal) {
			log.WithError(err).Error("Paint failed after validation")
		} else {
			log.WithError(err).Debug("Paint rejected")
		}
		return nil, err
	}

	x, y, _ := s.engine.Coordinates(index)
	result := &PaintResult{
		Index:     index,
		X:         x,
		Y:         y,
		Color:     color,
		PlayerID:  req.PlayerID,
		PaintedAt: time.Now().UTC(),
	}
	if player, err := s.engine.Player(req.PlayerID); err == nil && player.LastPlayed != nil {
		result.PaintedAt = player.LastPlayed.UTC()
	}

	log.Debug("Pixel painted")
	s.publish(EventPixelPainted, result)
	return result, nil
}

// GetBoard returns the board dimensions and a copy of every cell
func (s *gameServiceImpl) GetBoard(ctx context.Context) (*BoardInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board()
}

// Snapshot runs fn on the current board with the lock held
func (s *gameServiceImpl) Snapshot(ctx context.Context, fn func(board *BoardInfo)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.board()
	if err != nil {
		return err
	}
	fn(board)
	return nil
}

// board must be called with mu held
func (s *gameServiceImpl) board() (*BoardInfo, error) {
	cells, err := s.engine.Board()
	if err != nil {
		logrus.WithError(err).Error("Failed to read board")
		return nil, err
	}

	info := s.info()
	info.Cells = cells
	return info, nil
}

// GetInfo returns the board dimensions and cooldown without the cells
func (s *gameServiceImpl) GetInfo(ctx context.Context) *BoardInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info()
}

func (s *gameServiceImpl) info() *BoardInfo {
	return &BoardInfo{
		Width:           s.engine.Width(),
		Height:          s.engine.Height(),
		CooldownSeconds: s.engine.Cooldown().Seconds(),
		Colors:          append([]engine.Color(nil), engine.Colors...),
	}
}

// resolveIndex turns either addressing form into a flat index
func (s *gameServiceImpl) resolveIndex(req PaintRequest) (int, error) {
	if req.Index != nil {
		return *req.Index, nil
	}
	if req.X == nil || req.Y == nil {
		return 0, fmt.Errorf("%w: index or both x and y are required", engine.ErrInvalidCoordinates)
	}
	index, ok := s.engine.Index(*req.X, *req.Y)
	if !ok {
		return 0, engine.ErrInvalidCoordinates
	}
	return index, nil
}

func (s *gameServiceImpl) playerInfo(player engine.Player) (*PlayerInfo, error) {
	remaining, err := s.engine.CooldownRemaining(player.ID)
	if err != nil {
		return nil, err
	}
	return &PlayerInfo{
		ID:                       player.ID,
		Name:                     player.Name,
		LastPlayed:               player.LastPlayed,
		CanPaint:                 remaining == 0,
		CooldownRemainingSeconds: CeilSeconds(remaining),
	}, nil
}
