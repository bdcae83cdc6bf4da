package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats summarizes a painting run
type Stats struct {
	Painted int
	Skipped int
	Retries int
	Elapsed time.Duration
}

type crewMember struct {
	id      int
	readyAt time.Time
}

// Painter works through strokes with a crew of players, always handing the
// next stroke to whoever is off cooldown first.
type Painter struct {
	client   *Client
	cooldown time.Duration
	crew     []*crewMember
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPainter(client *Client, cooldown time.Duration) *Painter {
	return &Painter{
		client:   client,
		cooldown: cooldown,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Register creates size players named prefix-1, prefix-2, ...
func (p *Painter) Register(ctx context.Context, prefix string, size int) error {
	if size < 1 {
		return fmt.Errorf("crew size must be at least 1, got %d", size)
	}
	for i := 1; i <= size; i++ {
		player, err := p.client.CreatePlayer(ctx, fmt.Sprintf("%s-%d", prefix, i))
		if err != nil {
			return err
		}
		p.crew = append(p.crew, &crewMember{id: player.ID})
		logrus.WithFields(logrus.Fields{"player_id": player.ID, "name": player.Name}).Debug("Crew member registered")
	}
	return nil
}

func (p *Painter) nextReady() *crewMember {
	next := p.crew[0]
	for _, m := range p.crew[1:] {
		if m.readyAt.Before(next.readyAt) {
			next = m
		}
	}
	return next
}

// Run paints every stroke in order. Cooldown rejections are retried after
// the remaining time the server reports; other rejections skip the stroke.
func (p *Painter) Run(ctx context.Context, strokes []Stroke) (Stats, error) {
	var stats Stats
	if len(p.crew) == 0 {
		return stats, errors.New("no crew registered")
	}
	start := p.now()

	for i := 0; i < len(strokes); {
		stroke := strokes[i]
		member := p.nextReady()

		if err := p.sleep(ctx, member.readyAt.Sub(p.now())); err != nil {
			stats.Elapsed = p.now().Sub(start)
			return stats, err
		}

		_, err := p.client.Paint(ctx, member.id, stroke.Index, stroke.Color)
		if err == nil {
			member.readyAt = p.now().Add(p.cooldown)
			stats.Painted++
			i++
			logrus.WithFields(logrus.Fields{
				"player_id": member.id,
				"index":     stroke.Index,
				"color":     stroke.Color,
				"remaining": len(strokes) - i,
			}).Debug("Painted")
			continue
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			stats.Elapsed = p.now().Sub(start)
			return stats, err
		}
		if wait := apiErr.Cooldown(); wait > 0 {
			member.readyAt = p.now().Add(wait)
			stats.Retries++
			continue
		}

		logrus.WithError(err).WithField("index", stroke.Index).Warn("Stroke rejected, skipping")
		stats.Skipped++
		i++
	}

	stats.Elapsed = p.now().Sub(start)
	return stats, nil
}
