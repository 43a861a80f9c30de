package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// Publisher emits the completion event of each successful run.
type Publisher interface {
	Publish(ctx context.Context, env *model.Envelope) error
}

// RunFunc performs one cycle of work. Its result is attached to the
// completion event.
type RunFunc func(ctx context.Context) (any, error)

// Periodic runs a RunFunc on a fixed interval and announces each
// successful run on the event sink.
type Periodic struct {
	name      string
	topic     string
	eventType string
	logger    *zap.Logger
	publisher Publisher
	run       RunFunc
	interval  time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// Options configures a Periodic job.
type Options struct {
	Name      string // used in logs and in the event payload
	Topic     string
	EventType string
	Interval  time.Duration
}

// NewPeriodic constructs a background job. pub may be nil.
func NewPeriodic(logger *zap.Logger, pub Publisher, opts Options, run RunFunc) *Periodic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Periodic{
		name:      opts.Name,
		topic:     opts.Topic,
		eventType: opts.EventType,
		logger:    logger.With(zap.String("job", opts.Name)),
		publisher: pub,
		run:       run,
		interval:  opts.Interval,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start blocks, running the job every interval until Stop is called or ctx is done.
func (p *Periodic) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("job.started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-p.stopCh:
			p.logger.Info("job.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			p.logger.Info("job.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (p *Periodic) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// RunOnce executes one cycle and reports whether it succeeded.
func (p *Periodic) RunOnce(ctx context.Context) bool {
	start := p.now()
	p.logger.Debug("job.running")

	result, err := p.run(ctx)
	elapsed := p.now().Sub(start)
	if err != nil {
		p.logger.Error("job.run_failed", zap.Error(err), zap.Duration("duration", elapsed))
		return false
	}

	if p.publisher != nil {
		env, err := model.NewEnvelope(p.topic, p.eventType, model.JobCompletedEvent{
			Job:        p.name,
			DurationMs: elapsed.Milliseconds(),
			Result:     result,
			FinishedAt: p.now().UTC(),
		})
		if err == nil {
			err = p.publisher.Publish(ctx, env)
		}
		if err != nil {
			p.logger.Warn("job.publish_failed", zap.Error(err))
		}
	}

	p.logger.Info("job.success", zap.Duration("duration", elapsed))
	return true
}
