package changefeed

import (
	"context"
	"log"

	"attendance/dashboard/internal/pkg/repository/postgresql"
	"attendance/dashboard/internal/store"

	"github.com/pkg/errors"
)

// Postgres listens to the notifications of the attendance trigger.
type Postgres struct {
	db      *postgresql.Database
	channel string
	log     *log.Logger
}

func NewPostgres(db *postgresql.Database, channel string, log *log.Logger) *Postgres {
	if channel == "" {
		channel = Channel
	}
	return &Postgres{db: db, channel: channel, log: log}
}

// Subscribe opens a dedicated LISTEN connection. Undecodable payloads are
// logged and skipped.
func (p *Postgres) Subscribe(ctx context.Context, handler Handler) (store.Subscription, error) {
	ln := p.db.NewListener()
	if err := ln.Listen(ctx, p.channel); err != nil {
		_ = ln.Close()
		return nil, errors.Wrapf(err, "listening on %s", p.channel)
	}

	sub := newSubscription(ln.Close)
	ch := ln.Channel()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				ev, err := Decode([]byte(n.Payload))
				if err != nil {
					p.log.Printf("changefeed : postgres : dropping notification: %v", err)
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
