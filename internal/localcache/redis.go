package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMedium stores values as plain keys and announces every write on a
// pub/sub channel so other processes sharing the server can follow it.
type RedisMedium struct {
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger
}

type notice struct {
	Origin  string          `json:"origin"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

func NewRedisMedium(client *redis.Client, channel string, logger *slog.Logger) *RedisMedium {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisMedium{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     logger.With("component", "localcache_redis"),
	}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func (m *RedisMedium) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("getting key: %w", err)
	}

	return payload, nil
}

func (m *RedisMedium) Store(ctx context.Context, key string, payload []byte) error {
	msg, err := json.Marshal(notice{Origin: m.origin, Key: key, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, 0)
		pipe.Publish(ctx, m.channel, msg)

		return nil
	})
	if err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	return nil
}

// Watch follows writes published by other RedisMedium instances.
func (m *RedisMedium) Watch(ctx context.Context) (<-chan Change, error) {
	ps := m.client.Subscribe(ctx, m.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", m.channel, err)
	}

	out := make(chan Change)

	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var n notice
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					m.log.Warn("ignoring malformed notice", "error", err)
					continue
				}

				if n.Origin == m.origin {
					continue
				}

				select {
				case out <- Change{Key: n.Key, Payload: n.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
