package worker

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/deathmotion/antihealthindicator/internal/worker"

// Task is a unit of work executed off the packet path.
type Task func(ctx context.Context)

// Submitter hands tasks to an executor without waiting for them.
type Submitter interface {
	// Submit queues t and reports whether it was accepted. It never blocks.
	Submit(t Task) bool
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config sizes the pool.
type Config struct {
	Workers   int
	QueueSize int
}

// Pool runs tasks on a fixed set of goroutines fed by a bounded queue.
// Submissions beyond the queue capacity are dropped.
type Pool struct {
	tasks  chan Task
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// NewPool starts cfg.Workers goroutines. Zero values default to one worker
// and a queue of 256.
func NewPool(cfg Config, logger Logger) (*Pool, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan Task, cfg.QueueSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := p.initMetrics(); err != nil {
		cancel()
		return nil, err
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.run()
	}
	return p, nil
}

func (p *Pool) initMetrics() error {
	m := otel.Meter(instrumentationName)

	var err error
	p.queueSize, err = m.Int64ObservableGauge(
		"worker.queue.size",
		metric.WithDescription("Current number of queued tasks"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(p.queueSize, int64(len(p.tasks)))
			return nil
		},
		p.queueSize,
	)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	p.processed, err = m.Int64Counter(
		"worker.tasks.processed",
		metric.WithDescription("Total tasks executed"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	p.dropped, err = m.Int64Counter(
		"worker.tasks.dropped",
		metric.WithDescription("Total tasks dropped due to full queue or shutdown"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(context.Background(), 1)
		return false
	}

	select {
	case p.tasks <- t:
		return true
	default:
		p.dropped.Add(context.Background(), 1)
		return false
	}
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.tasks)
}

// Close stops accepting tasks, drains the queue and waits for the workers.
// The context passed to still-running tasks is cancelled when ctx expires.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.exec(t)
	}
}

func (p *Pool) exec(t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", "panic", r)
		}
	}()
	t(p.ctx)
	p.processed.Add(context.Background(), 1)
}
