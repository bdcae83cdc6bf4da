package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
)

// DefaultPlayerName is registered when no name is given
const DefaultPlayerName = "romain"

// Glyph is printed for every cell
const Glyph = "▣"

const usage = "Usage: <x> <y> <color> (colors: green, red, white, yellow, black, blue), or quit"

var cellColors = map[engine.Color]color.Attribute{
	engine.Green:  color.FgGreen,
	engine.Red:    color.FgRed,
	engine.White:  color.FgWhite,
	engine.Yellow: color.FgYellow,
	engine.Black:  color.FgBlack,
	engine.Blue:   color.FgBlue,
}

// Console plays the board from a line-oriented terminal
type Console struct {
	service    service.GameService
	in         io.Reader
	out        io.Writer
	playerName string
	colorize   bool
}

// Option customizes a Console
type Option func(*Console)

// WithPlayerName sets the name registered at start
func WithPlayerName(name string) Option {
	return func(c *Console) {
		if name != "" {
			c.playerName = name
		}
	}
}

// WithColor turns ANSI colors on or off
func WithColor(enabled bool) Option {
	return func(c *Console) {
		c.colorize = enabled
	}
}

// New creates a console reading commands from in and writing to out
func New(gameService service.GameService, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		service:    gameService,
		in:         in,
		out:        out,
		playerName: DefaultPlayerName,
		colorize:   !color.NoColor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run registers the player, prints the board and executes commands until
// quit, end of input or cancellation.
func (c *Console) Run(ctx context.Context) error {
	player, err := c.service.CreatePlayer(ctx, c.playerName)
	if err != nil {
		return fmt.Errorf("failed to register player: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"player_id": player.ID,
		"name":      player.Name,
	}).Debug("Console player registered")

	if err := c.printBoard(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return nil
		}

		x, y, paint, ok := parseCommand(line)
		if !ok {
			fmt.Fprintln(c.out, usage)
			continue
		}

		_, err := c.service.Paint(ctx, service.PaintRequest{
			PlayerID: player.ID,
			Color:    string(paint),
			X:        &x,
			Y:        &y,
		})
		if err != nil {
			if !c.printPaintError(err) {
				return err
			}
			continue
		}

		if err := c.printBoard(ctx); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// parseCommand reads "x y color". Unknown color names paint green.
func parseCommand(line string) (x, y int, paint engine.Color, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return 0, 0, "", false
	}

	x, errX := strconv.Atoi(fields[0])
	y, errY := strconv.Atoi(fields[1])
	if errX != nil || errY != nil {
		return 0, 0, "", false
	}

	paint, err := engine.ParseColor(fields[2])
	if err != nil {
		paint = engine.Green
	}
	return x, y, paint, true
}

// printPaintError reports a rejected paint; false for errors the loop cannot continue after
func (c *Console) printPaintError(err error) bool {
	if remaining, ok := engine.RemainingCooldown(err); ok {
		wait := time.Duration(service.CeilSeconds(remaining)) * time.Second
		fmt.Fprintf(c.out, "Player already played, remaining time: %s\n", wait)
		return true
	}

	switch {
	case errors.Is(err, engine.ErrPlayerNotFound):
		fmt.Fprintln(c.out, "Player not found")
	case errors.Is(err, engine.ErrInvalidCoordinates):
		fmt.Fprintln(c.out, "Invalid coordinates")
	case errors.Is(err, engine.ErrInvalidColor):
		fmt.Fprintln(c.out, usage)
	default:
		return false
	}
	return true
}

func (c *Console) printBoard(ctx context.Context) error {
	board, err := c.service.GetBoard(ctx)
	if err != nil {
		return fmt.Errorf("failed to read board: %w", err)
	}

	fmt.Fprint(c.out, c.Render(board))
	return nil
}

// Render draws the board with one glyph per cell, followed by a blank line
func (c *Console) Render(board *service.BoardInfo) string {
	painters := make(map[engine.Color]*color.Color, len(cellColors))
	for name, attr := range cellColors {
		p := color.New(attr)
		if c.colorize {
			p.EnableColor()
		} else {
			p.DisableColor()
		}
		painters[name] = p
	}

	var sb strings.Builder
	for i, cell := range board.Cells {
		if p, ok := painters[cell]; ok {
			sb.WriteString(p.Sprint(Glyph))
		} else {
			sb.WriteString(Glyph)
		}
		if (i+1)%board.Width == 0 {
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
