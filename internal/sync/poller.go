package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/logging"
)

const (
	defaultPollInterval = 60 * time.Second

	// defaultFetchTimeout is the maximum time allowed for one poll.
	defaultFetchTimeout = 30 * time.Second
)

// Poller repeats silent snapshot syncs of both domains in the background.
type Poller struct {
	syncer   *Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu        gosync.Mutex
	running   bool
	triggerCh chan struct{}
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewPoller creates a Poller. Non-positive durations fall back to
// defaults.
func NewPoller(s *Syncer, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Poller{
		syncer:   s,
		interval: interval,
		timeout:  timeout,
		logger:   logging.OrNop(logger),
	}
}

// Start launches the polling goroutine. It is a no-op when already
// running. The loop ends on Stop or when ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.triggerCh = make(chan struct{}, 1)
	p.doneCh = make(chan struct{})

	go p.loop(ctx, p.triggerCh, p.doneCh)
}

// Stop halts the polling goroutine, cancelling any in-flight poll, and
// waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh triggers an immediate silent poll without blocking.
func (p *Poller) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already pending.
	}
}

func (p *Poller) loop(ctx context.Context, trigger, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-trigger:
			p.poll(ctx)
		}
	}
}

// poll runs one silent sync of both domains.
func (p *Poller) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug("polling notifications")
	// Silent syncs report failures through status only.
	_ = p.syncer.SyncAll(ctx, true)
}
