package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
)

var ErrPatternTooLarge = errors.New("pattern does not fit on the board")

// Pattern is a target image. An empty cell leaves the board untouched.
type Pattern struct {
	Width  int
	Height int
	Cells  []engine.Color
}

func (p *Pattern) at(x, y int) engine.Color {
	return p.Cells[x+y*p.Width]
}

// Stroke is one paint the bruteforcer still has to make
type Stroke struct {
	Index int
	Color engine.Color
}

// ParsePattern reads one row per line using the board letters
// (G, R, W, Y, K, B). A '.' keeps whatever is on the board.
func ParsePattern(r io.Reader) (*Pattern, error) {
	var rows []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		rows = append(rows, strings.TrimRight(scanner.Text(), "\r "))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, errors.New("pattern is empty")
	}

	p := &Pattern{Width: len(rows[0]), Height: len(rows)}
	p.Cells = make([]engine.Color, 0, p.Width*p.Height)
	for y, row := range rows {
		if len(row) != p.Width {
			return nil, fmt.Errorf("inconsistent pattern width at row %d: expected %d, got %d", y+1, p.Width, len(row))
		}
		for x := 0; x < len(row); x++ {
			if row[x] == '.' {
				p.Cells = append(p.Cells, "")
				continue
			}
			color, ok := engine.ColorFromLetter(row[x])
			if !ok {
				return nil, fmt.Errorf("invalid character '%c' at position [%d,%d]", row[x], y+1, x+1)
			}
			p.Cells = append(p.Cells, color)
		}
	}
	return p, nil
}

// BuiltinPattern generates one of the named patterns at the given size:
// checker, stripes or border.
func BuiltinPattern(name string, width, height int) (*Pattern, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", width, height)
	}

	p := &Pattern{Width: width, Height: height, Cells: make([]engine.Color, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c engine.Color
			switch name {
			case "checker":
				c = engine.White
				if (x+y)%2 == 0 {
					c = engine.Black
				}
			case "stripes":
				c = engine.Colors[y%len(engine.Colors)]
			case "border":
				if x == 0 || y == 0 || x == width-1 || y == height-1 {
					c = engine.Red
				}
			default:
				return nil, fmt.Errorf("unknown pattern %q", name)
			}
			p.Cells[x+y*width] = c
		}
	}
	return p, nil
}

// Plan lists the strokes needed to turn board into p placed at (offsetX,
// offsetY). Cells that already have the right color are skipped.
func Plan(p *Pattern, board *service.BoardInfo, offsetX, offsetY int) ([]Stroke, error) {
	if offsetX < 0 || offsetY < 0 || offsetX+p.Width > board.Width || offsetY+p.Height > board.Height {
		return nil, fmt.Errorf("%w: %dx%d at (%d,%d) on %dx%d", ErrPatternTooLarge, p.Width, p.Height, offsetX, offsetY, board.Width, board.Height)
	}

	var strokes []Stroke
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			want := p.at(x, y)
			if want == "" {
				continue
			}
			index := (x + offsetX) + (y+offsetY)*board.Width
			if index < len(board.Cells) && board.Cells[index] == want {
				continue
			}
			strokes = append(strokes, Stroke{Index: index, Color: want})
		}
	}
	return strokes, nil
}
