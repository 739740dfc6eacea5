package bot

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/climatenet/climatebot/internal/metrics"
)

const longPollTimeout = 30 * time.Second

// Poller runs the long-poll receive loop and hands every update to the
// dispatcher in order. When the loop fails it is restarted with
// exponential backoff; successful polls reset the backoff schedule.
type Poller struct {
	transport  Transport
	dispatcher *Dispatcher
	offset     int64
}

func NewPoller(transport Transport, dispatcher *Dispatcher) *Poller {
	return &Poller{transport: transport, dispatcher: dispatcher}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0

	for {
		err := p.poll(ctx, bo)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := bo.NextBackOff()
		metrics.PollerRestartsTotal.Inc()
		log.Printf("poller: receive loop failed, restarting in %s: %v", wait.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// poll receives and dispatches updates until an error or cancellation.
func (p *Poller) poll(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	for {
		updates, err := p.transport.GetUpdates(ctx, p.offset+1, longPollTimeout)
		if err != nil {
			return err
		}
		bo.Reset()

		for _, u := range updates {
			if u.UpdateID > p.offset {
				p.offset = u.UpdateID
			}
			p.dispatcher.HandleUpdate(ctx, u)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
