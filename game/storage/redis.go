package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wricardo/pixelboard/game/engine"
)

const (
	// DefaultRedisPrefix namespaces every key written by Redis
	DefaultRedisPrefix = "pixelboard:"

	// DefaultOpTimeout bounds each call to a networked backend
	DefaultOpTimeout = 5 * time.Second

	redisPushBatch = 1000
)

// Redis stores the grid as a Redis list and every player as a hash
type Redis struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
}

// NewRedis creates a Redis-backed store. An empty prefix selects DefaultRedisPrefix.
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	if client == nil {
		panic("redis client cannot be nil for storage.Redis")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultRedisPrefix
	}
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		timeout:   DefaultOpTimeout,
	}
}

// --- Key Generation Helpers ---

func (r *Redis) gridKey() string {
	return r.keyPrefix + "grid"
}

func (r *Redis) playerSeqKey() string {
	return r.keyPrefix + "players:seq"
}

func (r *Redis) playerKey(id int) string {
	return fmt.Sprintf("%splayer:%d", r.keyPrefix, id)
}

func (r *Redis) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// InitializeGrid replaces the grid list in a single transaction
func (r *Redis) InitializeGrid(width, height int, fill engine.Color) error {
	ctx, cancel := r.opContext()
	defer cancel()

	key := r.gridKey()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)

	size := width * height
	for start := 0; start < size; start += redisPushBatch {
		end := start + redisPushBatch
		if end > size {
			end = size
		}
		batch := make([]interface{}, end-start)
		for i := range batch {
			batch[i] = string(fill)
		}
		pipe.RPush(ctx, key, batch...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to initialize grid at %s: %w", key, err)
	}
	return nil
}

// ReadGrid returns the whole grid list
func (r *Redis) ReadGrid() ([]engine.Color, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	key := r.gridKey()
	values, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read grid from %s: %w", key, err)
	}

	grid := make([]engine.Color, len(values))
	for i, v := range values {
		grid[i] = engine.Color(v)
	}
	return grid, nil
}

// WriteCell sets one element of the grid list
func (r *Redis) WriteCell(index int, color engine.Color) error {
	ctx, cancel := r.opContext()
	defer cancel()

	key := r.gridKey()
	length, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to get grid length from %s: %w", key, err)
	}
	if index < 0 || int64(index) >= length {
		return engine.ErrIndexOutOfRange
	}

	if err := r.client.LSet(ctx, key, int64(index), string(color)).Err(); err != nil {
		return fmt.Errorf("redis: failed to write cell %d at %s: %w", index, key, err)
	}
	return nil
}

// CreatePlayer allocates an id with INCR and stores the player hash
func (r *Redis) CreatePlayer(name string) (engine.Player, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	id, err := r.client.Incr(ctx, r.playerSeqKey()).Result()
	if err != nil {
		return engine.Player{}, fmt.Errorf("redis: failed to allocate player id: %w", err)
	}

	key := r.playerKey(int(id))
	if err := r.client.HSet(ctx, key, "name", name).Err(); err != nil {
		return engine.Player{}, fmt.Errorf("redis: failed to store player %d at %s: %w", id, key, err)
	}

	return engine.Player{ID: int(id), Name: name}, nil
}

// RecordPlay sets the last_played field of an existing player
func (r *Redis) RecordPlay(playerID int, at time.Time) error {
	ctx, cancel := r.opContext()
	defer cancel()

	key := r.playerKey(playerID)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to check player %d at %s: %w", playerID, key, err)
	}
	if exists == 0 {
		return engine.ErrPlayerNotFound
	}

	if err := r.client.HSet(ctx, key, "last_played", at.UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("redis: failed to record play for player %d at %s: %w", playerID, key, err)
	}
	return nil
}

// GetPlayer reads the player hash
func (r *Redis) GetPlayer(playerID int) (engine.Player, bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	key := r.playerKey(playerID)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return engine.Player{}, false, fmt.Errorf("redis: failed to get player %d from %s: %w", playerID, key, err)
	}
	if len(fields) == 0 {
		return engine.Player{}, false, nil
	}

	player := engine.Player{ID: playerID, Name: fields["name"]}
	if raw, ok := fields["last_played"]; ok && raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return engine.Player{}, false, fmt.Errorf("redis: failed to parse last_played '%s' for player %d: %w", raw, playerID, err)
		}
		player.LastPlayed = &at
	}
	return player, true, nil
}
