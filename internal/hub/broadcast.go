package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/jonboulle/clockwork"

	"livetext/internal/metrics"
)

// ErrSendPanicked marks a send that panicked instead of returning.
var ErrSendPanicked = errors.New("send panicked")

// Failure is one client that did not receive a broadcast.
type Failure struct {
	ClientID string
	Err      error
}

// Result summarizes one fan-out.
type Result struct {
	Recipients int
	Failures   []Failure
}

// Delivered is the number of clients that received the line.
func (r Result) Delivered() int {
	return r.Recipients - len(r.Failures)
}

// Broadcaster delivers operator lines to every registered client.
type Broadcaster struct {
	clients *ClientManager
	clock   clockwork.Clock
	metrics *metrics.HubMetrics
}

func NewBroadcaster(clients *ClientManager, clock clockwork.Clock, m *metrics.HubMetrics) *Broadcaster {
	return &Broadcaster{
		clients: clients,
		clock:   clock,
		metrics: m,
	}
}

// Broadcast sends text to every client registered when the call starts,
// one goroutine per client, and returns once all sends have finished.
// A failing client never stops delivery to the others.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) Result {
	recipients := b.clients.Snapshot()
	if len(recipients) == 0 {
		return Result{}
	}

	start := b.clock.Now()
	errs := make([]error, len(recipients))

	var wg sync.WaitGroup
	for i, c := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Recovered from panic in send", "client_id", c.ID(), "panic", r, "stack", string(debug.Stack()))
					errs[i] = fmt.Errorf("%w: %v", ErrSendPanicked, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = c.Send(text)
		}()
	}
	wg.Wait()

	result := Result{Recipients: len(recipients)}
	for i, err := range errs {
		if err != nil {
			result.Failures = append(result.Failures, Failure{ClientID: recipients[i].ID(), Err: err})
		}
	}

	b.metrics.BroadcastsTotal.Inc()
	b.metrics.DeliveriesTotal.Add(float64(result.Delivered()))
	b.metrics.FailuresTotal.Add(float64(len(result.Failures)))
	b.metrics.FanoutDuration.Observe(b.clock.Since(start).Seconds())

	return result
}
