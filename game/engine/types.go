package engine

import (
	"fmt"
	"strings"
	"time"
)

// Color is the paint held by a single cell
type Color string

const (
	Green  Color = "green"
	Red    Color = "red"
	White  Color = "white"
	Yellow Color = "yellow"
	Black  Color = "black"
	Blue   Color = "blue"

	// Validation constants
	MinBoardSize = 1
	MaxBoardSize = 1000
)

// Colors lists every paintable color in declaration order
var Colors = []Color{Green, Red, White, Yellow, Black, Blue}

// Valid reports whether c is one of the known colors
func (c Color) Valid() bool {
	switch c {
	case Green, Red, White, Yellow, Black, Blue:
		return true
	}
	return false
}

// Letter returns the single-character form used by text renderings.
// Black is K so that it does not collide with blue.
func (c Color) Letter() byte {
	switch c {
	case Green:
		return 'G'
	case Red:
		return 'R'
	case White:
		return 'W'
	case Yellow:
		return 'Y'
	case Black:
		return 'K'
	case Blue:
		return 'B'
	}
	return '?'
}

// ColorFromLetter is the inverse of Letter. Lower-case letters are accepted.
func ColorFromLetter(letter byte) (Color, bool) {
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	for _, c := range Colors {
		if c.Letter() == letter {
			return c, true
		}
	}
	return "", false
}

// ParseColor converts a color name to a Color, ignoring case and surrounding spaces
func ParseColor(name string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, name)
	}
	return c, nil
}

// UnmarshalText accepts any casing, so "Red" and "red" decode alike
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Player is a registered painter. LastPlayed is nil until the first successful paint.
type Player struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	LastPlayed *time.Time `json:"last_played"`
}

// Settings is the immutable engine configuration
type Settings struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	FillColor Color         `json:"fill_color"`
	Cooldown  time.Duration `json:"cooldown"`
}

// Validate checks the settings before an engine is built from them
func (s Settings) Validate() error {
	if s.Width < MinBoardSize || s.Width > MaxBoardSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidSettings, MinBoardSize, MaxBoardSize, s.Width)
	}
	if s.Height < MinBoardSize || s.Height > MaxBoardSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidSettings, MinBoardSize, MaxBoardSize, s.Height)
	}
	if !s.FillColor.Valid() {
		return fmt.Errorf("%w: unknown fill color %q", ErrInvalidSettings, s.FillColor)
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative, got %s", ErrInvalidSettings, s.Cooldown)
	}
	return nil
}

// Size returns the number of cells on the board
func (s Settings) Size() int {
	return s.Width * s.Height
}
