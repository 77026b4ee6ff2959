package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"slack-summarizer/internal/summary"
)

// lastKey holds the latest result as JSON. Each save overwrites it.
const lastKey = "summary:last"

// RedisSink stores the latest result in Redis.
type RedisSink struct {
	client redis.Cmdable
	close  func() error
}

// NewRedisSink connects to addr and verifies the connection with PING.
func NewRedisSink(addr, password string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisSink{
		client: client,
		close:  client.Close,
	}, nil
}

// Save overwrites lastKey with res.
func (s *RedisSink) Save(ctx context.Context, res summary.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, lastKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save artifact to redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
