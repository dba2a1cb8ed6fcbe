package broadcast

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"

	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// Bridge consumes the pub/sub channel the outbox publisher writes to and
// feeds each frame into the local hub. One bridge runs per API instance so
// every instance sees every event regardless of which one handled the write.
type Bridge struct {
	client  subscriber
	hub     *Hub
	channel string
	logg    *logger.Logger
}

func NewBridge(client subscriber, hub *Hub, channel string, logg *logger.Logger) *Bridge {
	return &Bridge{client: client, hub: hub, channel: channel, logg: logg}
}

// Run blocks consuming the channel until ctx is cancelled. Malformed frames
// are logged and skipped; delivery stays at most once.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	if b.logg != nil {
		fields := map[string]any{"channel": b.channel}
		b.logg.Info(b.logg.WithFields(ctx, fields), "broadcast bridge listening")
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case received, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, []byte(received.Payload))
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, raw []byte) {
	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "dropping malformed broadcast frame", err)
		}
		return
	}

	frame, err := message.Encode()
	if err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "dropping unencodable broadcast frame", err)
		}
		return
	}

	b.hub.Publish(message.Topic(), message.SequenceVersion(), frame, message.EventType)
}
