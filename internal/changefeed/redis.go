package changefeed

import (
	"context"
	"log"

	"attendance/dashboard/internal/store"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis fans attendance changes out over a pub/sub channel, for deployments
// where several API instances share one board.
type Redis struct {
	client  *redis.Client
	channel string
	log     *log.Logger
}

func NewRedis(client *redis.Client, channel string, log *log.Logger) *Redis {
	if channel == "" {
		channel = Channel
	}
	return &Redis{client: client, channel: channel, log: log}
}

func (r *Redis) Publish(ctx context.Context, ev store.Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publishing to %s", r.channel)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning.
func (r *Redis) Subscribe(ctx context.Context, handler Handler) (store.Subscription, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrapf(err, "subscribing to %s", r.channel)
	}

	sub := newSubscription(ps.Close)
	ch := ps.Channel()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := Decode([]byte(msg.Payload))
				if err != nil {
					r.log.Printf("changefeed : redis : dropping message: %v", err)
					continue
				}
				select {
				case <-sub.done:
					return
				default:
				}
				handler(ev)
			}
		}
	}()

	return sub, nil
}
