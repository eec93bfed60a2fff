package outbox

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStreamTransport publishes events onto Redis streams, one stream per
// channel destination. Consumers read with XREAD/consumer groups.
type RedisStreamTransport struct {
	client redis.UniversalClient
	maxLen int64
}

// NewRedisStreamTransport wraps an existing client. maxLen bounds each
// stream with approximate trimming; zero disables trimming.
func NewRedisStreamTransport(client redis.UniversalClient, maxLen int64) *RedisStreamTransport {
	return &RedisStreamTransport{client: client, maxLen: maxLen}
}

func (t *RedisStreamTransport) Publish(ctx context.Context, destination string, event Event) error {
	args := &redis.XAddArgs{
		Stream: destination,
		Approx: true,
		MaxLen: t.maxLen,
		Values: map[string]any{
			"id":          event.ID.String(),
			"event_type":  event.EventType,
			"version":     event.Version,
			"occurred_at": event.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			"payload":     string(event.Payload),
		},
	}
	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("outbox: xadd %s: %w", destination, err)
	}
	return nil
}
