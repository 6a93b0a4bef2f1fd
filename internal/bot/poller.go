package bot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"kalm/internal/observability"
	"kalm/internal/platform/telegram"
)

// UpdateSource is the inbound half of the Telegram client used by the poll
// loop.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
	DeleteWebhook(ctx context.Context) (json.RawMessage, error)
}

// Poller long-polls Telegram for updates and hands each message to the
// processor in its own goroutine. It owns the update cursor: the offset only
// ever advances, and a failed poll leaves it untouched.
type Poller struct {
	source     UpdateSource
	proc       *Processor
	timeout    time.Duration
	retryDelay time.Duration
	log        *observability.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	offset int
}

func NewPoller(source UpdateSource, proc *Processor, timeout, retryDelay time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Poller{
		source:     source,
		proc:       proc,
		timeout:    timeout,
		retryDelay: retryDelay,
		log:        observability.Component("bot.poller"),
	}
}

// Start launches the poll loop. A second Start while running is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the loop and waits for it to exit. Safe to call when not
// running. In-flight message tasks are not tracked and keep running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	done := p.done
	p.mu.Unlock()
	<-done
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// A leftover webhook registration blocks getUpdates.
	if _, err := p.source.DeleteWebhook(ctx); err != nil {
		p.log.Warn(ctx, "delete webhook before polling failed", observability.AttrErr(err))
	}

	p.log.Info(ctx, "polling started", "timeout", p.timeout.String())
	delay := backoff.NewConstantBackOff(p.retryDelay)

	for {
		if ctx.Err() != nil {
			p.log.Info(ctx, "polling stopped")
			return
		}

		updates, err := p.source.GetUpdates(ctx, p.cursor(), p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info(ctx, "polling stopped")
				return
			}
			p.log.Error(ctx, "poll failed, retrying", observability.AttrErr(err), "delay", p.retryDelay.String())
			select {
			case <-ctx.Done():
			case <-time.After(delay.NextBackOff()):
			}
			continue
		}

		for _, u := range updates {
			p.advance(u.UpdateID)

			msg := u.Message
			if msg == nil || msg.Text == "" {
				continue
			}
			firstName := "friend"
			if msg.From != nil && msg.From.FirstName != "" {
				firstName = msg.From.FirstName
			}

			p.log.Info(ctx, "message received", "chat_id", msg.Chat.ID, "first_name", firstName)

			// Fire and forget: a slow synthesis for one chat must not hold
			// up intake of the next update. Detached from the loop context
			// so shutdown does not cut a reply mid-flight.
			go p.proc.Process(context.WithoutCancel(ctx), msg.Chat.ID, msg.Text, firstName)
		}
	}
}

func (p *Poller) cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// advance moves the cursor past updateID. The cursor never goes backwards.
func (p *Poller) advance(updateID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if updateID >= p.offset {
		p.offset = updateID + 1
	}
}
