package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

const redisTimeout = 5 * time.Second

// RedisLogger keeps audit events in a capped Redis list, newest at the head.
type RedisLogger struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisLogger connects to addr and verifies the server answers PING.
// maxLen caps the list length; zero keeps every event.
func NewRedisLogger(addr string, db int, key string, maxLen int64) (*RedisLogger, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to audit redis %s: %w", addr, err)
	}

	return &RedisLogger{client: client, key: key, maxLen: maxLen}, nil
}

// Log pushes the event and trims the list to maxLen
func (l *RedisLogger) Log(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, data)
	if l.maxLen > 0 {
		pipe.LTrim(ctx, l.key, 0, l.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing audit event to %s: %w", l.key, err)
	}
	return nil
}

// Query returns matching events, oldest first like FileLogger
func (l *RedisLogger) Query(filter Filter) ([]*Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading audit events from %s: %w", l.key, err)
	}

	events := []*Event{}
	for i := len(raw) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(raw[i]), &event); err != nil {
			util.Warnf("audit: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if filter.Matches(&event) {
			events = append(events, &event)
		}
	}
	return filter.window(events), nil
}

// Close closes the Redis client
func (l *RedisLogger) Close() error {
	return l.client.Close()
}
