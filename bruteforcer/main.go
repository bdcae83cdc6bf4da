// Command bruteforcer paints a pattern onto a running pixel board through
// the REST API. It registers a crew of players and rotates between them so
// that the per-player cooldown is not the bottleneck.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Fatal("bruteforcer failed")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bruteforcer",
		Usage: "paint a pattern onto a pixel board",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Board server URL", Sources: cli.EnvVars("PIXELBOARD_URL")},
			&cli.StringFlag{Name: "pattern", Value: "checker", Usage: "Built-in pattern (checker, stripes, border) or a pattern file"},
			&cli.IntFlag{Name: "width", Usage: "Built-in pattern width (defaults to the board width)"},
			&cli.IntFlag{Name: "height", Usage: "Built-in pattern height (defaults to the board height)"},
			&cli.IntFlag{Name: "x", Usage: "Column of the pattern's top-left cell"},
			&cli.IntFlag{Name: "y", Usage: "Row of the pattern's top-left cell"},
			&cli.IntFlag{Name: "players", Value: 4, Usage: "Crew size"},
			&cli.StringFlag{Name: "name", Value: "bruteforcer", Usage: "Crew name prefix"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func loadPattern(name string, width, height int) (*Pattern, error) {
	if f, err := os.Open(name); err == nil {
		defer f.Close()
		return ParsePattern(f)
	}
	return BuiltinPattern(name, width, height)
}

func run(ctx context.Context, cmd *cli.Command) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cmd.Bool("v") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	client := NewClient(cmd.String("url"))
	logrus.Infof("Connecting to board server at %s", cmd.String("url"))

	board, err := client.Board(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("Board %dx%d, cooldown %gs", board.Width, board.Height, board.CooldownSeconds)

	width, height := cmd.Int("width"), cmd.Int("height")
	if width == 0 {
		width = board.Width - cmd.Int("x")
	}
	if height == 0 {
		height = board.Height - cmd.Int("y")
	}

	pattern, err := loadPattern(cmd.String("pattern"), width, height)
	if err != nil {
		return err
	}

	strokes, err := Plan(pattern, board, cmd.Int("x"), cmd.Int("y"))
	if err != nil {
		return err
	}
	if len(strokes) == 0 {
		logrus.Info("Board already matches the pattern")
		return nil
	}

	cooldown := time.Duration(board.CooldownSeconds * float64(time.Second))
	crew := cmd.Int("players")
	logrus.Infof("%d strokes to paint with %d players, at least %s", len(strokes), crew, estimate(len(strokes), crew, cooldown))

	painter := NewPainter(client, cooldown)
	if err := painter.Register(ctx, cmd.String("name"), crew); err != nil {
		return err
	}

	stats, err := painter.Run(ctx, strokes)
	logrus.WithFields(logrus.Fields{
		"painted": stats.Painted,
		"skipped": stats.Skipped,
		"retries": stats.Retries,
		"elapsed": stats.Elapsed.Round(time.Millisecond),
	}).Info("Run finished")
	return err
}

// estimate is the time a crew needs for strokes paints when every player
// paints as soon as its cooldown allows.
func estimate(strokes, crew int, cooldown time.Duration) string {
	if crew < 1 || strokes == 0 {
		return "0s"
	}
	rounds := (strokes - 1) / crew
	return fmt.Sprint(time.Duration(rounds) * cooldown)
}
