package service

import (
	"strings"
	"time"

	"github.com/wricardo/pixelboard/game/engine"
)

// PlayerInfo is a player record together with its cooldown state
type PlayerInfo struct {
	ID                       int        `json:"id"`
	Name                     string     `json:"name"`
	LastPlayed               *time.Time `json:"last_played"`
	CanPaint                 bool       `json:"can_paint"`
	CooldownRemainingSeconds int        `json:"cooldown_remaining_seconds"`
}

// PaintRequest addresses a cell either by Index or by X and Y
type PaintRequest struct {
	PlayerID int    `json:"player_id"`
	Color    string `json:"color"`
	Index    *int   `json:"index,omitempty"`
	X        *int   `json:"x,omitempty"`
	Y        *int   `json:"y,omitempty"`
}

// PaintResult describes a successful paint
type PaintResult struct {
	Index     int          `json:"index"`
	X         int          `json:"x"`
	Y         int          `json:"y"`
	Color     engine.Color `json:"color"`
	PlayerID  int          `json:"player_id"`
	PaintedAt time.Time    `json:"painted_at"`
}

// BoardInfo describes the board; Cells is omitted by GetInfo
type BoardInfo struct {
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	CooldownSeconds float64        `json:"cooldown_seconds"`
	Colors          []engine.Color `json:"colors,omitempty"`
	Cells           []engine.Color `json:"cells,omitempty"`
}

// Render draws the cells as one letter per cell and one row per line
func (b *BoardInfo) Render() string {
	if b.Width <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b.Cells) + len(b.Cells)/b.Width)
	for i, c := range b.Cells {
		sb.WriteByte(c.Letter())
		if (i+1)%b.Width == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// CeilSeconds rounds a duration up to whole seconds, so that waiting the
// reported number of seconds is always enough.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
