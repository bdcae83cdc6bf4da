package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
	"github.com/wricardo/pixelboard/game/storage"
)

// testClock is a settable clock shared with the engine
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, width, height int, cooldown time.Duration) (service.GameService, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	eng, err := engine.NewEngine(engine.Settings{
		Width:     width,
		Height:    height,
		FillColor: engine.White,
		Cooldown:  cooldown,
	}, storage.NewMemory(), engine.WithClock(clock))
	require.NoError(t, err)
	return service.NewGameService(eng), clock
}

func intPtr(v int) *int {
	return &v
}

func TestGameService_CreatePlayer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 2, 2, 10*time.Second)

	player, err := svc.CreatePlayer(ctx, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, 1, player.ID)
	assert.Equal(t, "alice", player.Name)
	assert.Nil(t, player.LastPlayed)
	assert.True(t, player.CanPaint)
	assert.Zero(t, player.CooldownRemainingSeconds)

	again, err := svc.CreatePlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, again.ID, "duplicate names get fresh ids")

	_, err = svc.CreatePlayer(ctx, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidName)
}

func TestGameService_GetPlayer(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, 2, 2, 10*time.Second)

	player, err := svc.CreatePlayer(ctx, "bob")
	require.NoError(t, err)

	_, err = svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "red", Index: intPtr(0)})
	require.NoError(t, err)

	clock.Advance(2500 * time.Millisecond)
	got, err := svc.GetPlayer(ctx, player.ID)
	require.NoError(t, err)
	assert.False(t, got.CanPaint)
	assert.Equal(t, 8, got.CooldownRemainingSeconds, "7.5s remaining rounds up")
	require.NotNil(t, got.LastPlayed)

	_, err = svc.GetPlayer(ctx, 42)
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)
}

func TestGameService_Paint(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, 3, 2, 10*time.Second)

	player, err := svc.CreatePlayer(ctx, "carol")
	require.NoError(t, err)

	t.Run("by index", func(t *testing.T) {
		result, err := svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "Red", Index: intPtr(4)})
		require.NoError(t, err)
		assert.Equal(t, 4, result.Index)
		assert.Equal(t, 1, result.X)
		assert.Equal(t, 1, result.Y)
		assert.Equal(t, engine.Red, result.Color)
		assert.Equal(t, clock.Now(), result.PaintedAt)
	})

	t.Run("cooldown", func(t *testing.T) {
		clock.Advance(3 * time.Second)
		_, err := svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "blue", Index: intPtr(0)})
		require.ErrorIs(t, err, engine.ErrCooldownActive)

		remaining, ok := engine.RemainingCooldown(err)
		require.True(t, ok)
		assert.Equal(t, 7*time.Second, remaining)
	})

	t.Run("by coordinates", func(t *testing.T) {
		clock.Advance(7 * time.Second)
		result, err := svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "blue", X: intPtr(2), Y: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Index)
	})

	t.Run("board reflects paints", func(t *testing.T) {
		board, err := svc.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, []engine.Color{
			engine.White, engine.White, engine.Blue,
			engine.White, engine.Red, engine.White,
		}, board.Cells)
		assert.Equal(t, "WWB\nWRW\n", board.Render())
	})
}

func TestGameService_PaintErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 2, 2, time.Second)
	player, err := svc.CreatePlayer(ctx, "dave")
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     service.PaintRequest
		wantErr error
	}{
		{"unknown color", service.PaintRequest{PlayerID: player.ID, Color: "purple", Index: intPtr(0)}, engine.ErrInvalidColor},
		{"index past end", service.PaintRequest{PlayerID: player.ID, Color: "red", Index: intPtr(4)}, engine.ErrInvalidCoordinates},
		{"negative index", service.PaintRequest{PlayerID: player.ID, Color: "red", Index: intPtr(-1)}, engine.ErrInvalidCoordinates},
		{"x outside", service.PaintRequest{PlayerID: player.ID, Color: "red", X: intPtr(2), Y: intPtr(0)}, engine.ErrInvalidCoordinates},
		{"y missing", service.PaintRequest{PlayerID: player.ID, Color: "red", X: intPtr(0)}, engine.ErrInvalidCoordinates},
		{"no address", service.PaintRequest{PlayerID: player.ID, Color: "red"}, engine.ErrInvalidCoordinates},
		{"unknown player", service.PaintRequest{PlayerID: 99, Color: "red", Index: intPtr(0)}, engine.ErrPlayerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Paint(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	board, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	for _, c := range board.Cells {
		assert.Equal(t, engine.White, c)
	}
}

func TestGameService_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t, 2, 2, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreatePlayer(ctx, "erin")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Paint(ctx, service.PaintRequest{PlayerID: 1, Color: "red", Index: intPtr(0)})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.GetBoard(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// No player was created by the cancelled call
	_, err = svc.GetPlayer(context.Background(), 1)
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)
}

func TestGameService_ConcurrentPaintsBySamePlayer(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.NewEngine(engine.Settings{
		Width:     10,
		Height:    10,
		FillColor: engine.White,
		Cooldown:  time.Hour,
	}, storage.NewMemory())
	require.NoError(t, err)
	svc := service.NewGameService(eng)

	player, err := svc.CreatePlayer(ctx, "racer")
	require.NoError(t, err)

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		cooldowns int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_, err := svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "black", Index: intPtr(index)})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, engine.ErrCooldownActive):
				cooldowns++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, cooldowns)

	board, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	painted := 0
	for _, c := range board.Cells {
		if c == engine.Black {
			painted++
		}
	}
	assert.Equal(t, 1, painted)
}

// recordingSink keeps every published event in order
type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name string
	data interface{}
}

func (s *recordingSink) Broadcast(event string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{name: event, data: data})
}

func (s *recordingSink) Events() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

func TestGameService_EventSink(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.NewEngine(engine.Settings{Width: 2, Height: 1, FillColor: engine.White, Cooldown: time.Minute}, storage.NewMemory())
	require.NoError(t, err)
	sink := &recordingSink{}
	svc := service.NewGameService(eng, service.WithEventSink(sink))

	player, err := svc.CreatePlayer(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "red", Index: intPtr(1)})
	require.NoError(t, err)

	// Rejections publish nothing
	_, err = svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "blue", Index: intPtr(0)})
	require.Error(t, err)
	_, err = svc.CreatePlayer(ctx, " ")
	require.Error(t, err)

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, service.EventPlayerCreated, events[0].name)
	assert.Equal(t, "alice", events[0].data.(*service.PlayerInfo).Name)
	assert.Equal(t, service.EventPixelPainted, events[1].name)
	painted := events[1].data.(*service.PaintResult)
	assert.Equal(t, 1, painted.Index)
	assert.Equal(t, engine.Red, painted.Color)
}

// Events are published in commit order, so the last event for a cell is
// the cell's final color
func TestGameService_EventsFollowCommitOrder(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.NewEngine(engine.Settings{Width: 1, Height: 1, FillColor: engine.White, Cooldown: time.Hour}, storage.NewMemory())
	require.NoError(t, err)
	sink := &recordingSink{}
	svc := service.NewGameService(eng, service.WithEventSink(sink))

	const players = 60
	ids := make([]int, players)
	for i := range ids {
		p, err := svc.CreatePlayer(ctx, "painter")
		require.NoError(t, err)
		ids[i] = p.ID
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			color := engine.Colors[i%len(engine.Colors)]
			_, err := svc.Paint(ctx, service.PaintRequest{PlayerID: id, Color: string(color), Index: intPtr(0)})
			assert.NoError(t, err)
		}(i, id)
	}
	wg.Wait()

	var paints []*service.PaintResult
	for _, e := range sink.Events() {
		if e.name == service.EventPixelPainted {
			paints = append(paints, e.data.(*service.PaintResult))
		}
	}
	require.Len(t, paints, players)

	board, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, board.Cells[0], paints[len(paints)-1].Color)
}

func TestGameService_SnapshotHoldsLock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 2, 1, 0)
	player, err := svc.CreatePlayer(ctx, "alice")
	require.NoError(t, err)

	painted := make(chan struct{})
	err = svc.Snapshot(ctx, func(board *service.BoardInfo) {
		go func() {
			svc.Paint(ctx, service.PaintRequest{PlayerID: player.ID, Color: "red", Index: intPtr(0)})
			close(painted)
		}()
		select {
		case <-painted:
			t.Error("a paint completed while the snapshot was held")
		case <-time.After(50 * time.Millisecond):
		}
		assert.Equal(t, []engine.Color{engine.White, engine.White}, board.Cells)
	})
	require.NoError(t, err)
	<-painted

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, svc.Snapshot(cancelled, func(*service.BoardInfo) {
		t.Error("fn must not run on a cancelled context")
	}), context.Canceled)
}

func TestGameService_GetInfo(t *testing.T) {
	svc, _ := newTestService(t, 4, 3, 10*time.Second)

	info := svc.GetInfo(context.Background())
	assert.Equal(t, 4, info.Width)
	assert.Equal(t, 3, info.Height)
	assert.Equal(t, 10.0, info.CooldownSeconds)
	assert.Empty(t, info.Cells)
	assert.Equal(t, engine.Colors, info.Colors)
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Nanosecond, 1},
		{time.Second, 1},
		{1001 * time.Millisecond, 2},
		{10 * time.Second, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.CeilSeconds(tt.in), "CeilSeconds(%s)", tt.in)
	}
}
