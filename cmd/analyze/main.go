// Command analyze prints quick, human-readable heuristics about the board
// presets in the project's configs directory. For each preset it estimates
// how long one player needs to cover the board, how many players it takes
// to repaint it within an hour, and the paint rate the server has to absorb
// when everyone paints as soon as the cooldown allows.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wricardo/pixelboard/game/config"
	"github.com/wricardo/pixelboard/game/engine"
)

// crewSizes are the player counts the rate table is printed for
var crewSizes = []int{1, 10, 100, 1000}

// Analysis holds the derived numbers for one preset
type Analysis struct {
	Name          string
	Cells         int
	Cooldown      time.Duration
	SoloFill      time.Duration
	PlayersPerHr  int
	PaintsPerSec  map[int]float64
	NoCooldown    bool
	ConsoleFitsIn bool
}

func analyze(settings engine.Settings, name string) Analysis {
	a := Analysis{
		Name:         name,
		Cells:        settings.Size(),
		Cooldown:     settings.Cooldown,
		PaintsPerSec: map[int]float64{},
		NoCooldown:   settings.Cooldown == 0,
		// one glyph per column
		ConsoleFitsIn: settings.Width <= 100,
	}
	if a.NoCooldown {
		return a
	}

	a.SoloFill = time.Duration(a.Cells-1) * settings.Cooldown
	paintsPerHour := int(time.Hour / settings.Cooldown)
	if paintsPerHour < 1 {
		paintsPerHour = 1
	}
	a.PlayersPerHr = (a.Cells + paintsPerHour - 1) / paintsPerHour
	for _, n := range crewSizes {
		a.PaintsPerSec[n] = float64(n) / settings.Cooldown.Seconds()
	}
	return a
}

func printAnalysis(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Cells: %d\n", a.Cells)
	if a.NoCooldown {
		fmt.Fprintf(w, "⚠️  WARNING: no cooldown, a single client can paint as fast as the server answers\n")
		return
	}
	fmt.Fprintf(w, "Cooldown: %s\n", a.Cooldown)
	fmt.Fprintf(w, "One player covers the board in: %s\n", a.SoloFill)
	fmt.Fprintf(w, "Players to repaint the board within an hour: %d\n", a.PlayersPerHr)
	for _, n := range crewSizes {
		fmt.Fprintf(w, "  %5d players -> %8.2f paints/s\n", n, a.PaintsPerSec[n])
	}
	if !a.ConsoleFitsIn {
		fmt.Fprintf(w, "⚠️  Board is wider than 100 columns, console rows will wrap\n")
	} else {
		fmt.Fprintf(w, "✅ Board fits the console\n")
	}
}

func run(w io.Writer, dir string) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.Filename)
		preset, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(w, "Error loading preset: %v\n", err)
			continue
		}
		settings, err := preset.Settings()
		if err != nil {
			fmt.Fprintf(w, "Error reading preset: %v\n", err)
			continue
		}
		printAnalysis(w, analyze(settings, info.Name))
	}
	return nil
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := run(os.Stdout, dir); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
