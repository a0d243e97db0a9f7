// Package worker runs the pool of goroutines that drain pkg/jobqueue,
// dispatching each claimed Job to the Handler registered for its queue
// name. Generalizes pkg/queue's single-purpose alert-session worker pool
// into a multi-queue dispatcher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/shared/logging"
	"github.com/hoferino/dealintel/pkg/shared/tenancy"
)

// Registry maps a queue name to the Handler that processes jobs from it,
// and an optional concurrency ceiling for that queue.
type Registry struct {
	handlers    map[string]jobqueue.Handler
	concurrency map[string]int
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:    make(map[string]jobqueue.Handler),
		concurrency: make(map[string]int),
	}
}

// Register associates a queue name with its handler and per-queue
// concurrency limit. defaultConcurrency is used if concurrency <= 0.
func (r *Registry) Register(queue string, concurrency int, handler jobqueue.Handler) {
	r.handlers[queue] = handler
	r.concurrency[queue] = concurrency
}

func (r *Registry) queues() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Config tunes the pool's polling and orphan-recovery cadence.
type Config struct {
	InstanceID         string
	PollInterval       time.Duration
	HeartbeatInterval  time.Duration
	OrphanTimeout      time.Duration
	DefaultConcurrency int
}

// Pool drains registered queues using a fixed number of poller goroutines
// per queue; a queue's concurrency limit is its poller count, with no
// separate semaphore.
type Pool struct {
	queue    *jobqueue.Queue
	registry *Registry
	cfg      Config

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.RWMutex
	active  map[string]int // queue -> in-flight count, for Health()
	started bool
}

// New builds a Pool that claims from q using the handlers in reg.
func New(q *jobqueue.Queue, reg *Registry, cfg Config) *Pool {
	return &Pool{
		queue:    q,
		registry: reg,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
		active:   make(map[string]int),
	}
}

// Start spawns, per registered queue, up to that queue's concurrency limit
// of poller goroutines, plus a single orphan-recovery goroutine. Safe to
// call once; a second call is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for _, queueName := range p.registry.queues() {
		concurrency := p.registry.concurrency[queueName]
		if concurrency <= 0 {
			concurrency = p.cfg.DefaultConcurrency
		}
		for i := 0; i < concurrency; i++ {
			p.wg.Add(1)
			go p.runPoller(ctx, queueName, i)
		}
	}

	p.wg.Add(1)
	go p.runOrphanRecovery(ctx)
}

// Stop signals every poller to finish its current job and exit, then waits.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Pool) runPoller(ctx context.Context, queueName string, slot int) {
	defer p.wg.Done()
	log := slog.With("queue", queueName, "worker_instance", p.cfg.InstanceID, "slot", slot)
	log.Info("worker slot started")

	for {
		select {
		case <-p.stopCh:
			log.Info("worker slot shutting down")
			return
		case <-ctx.Done():
			return
		default:
			if err := p.claimAndRun(ctx, queueName); err != nil {
				if errors.Is(err, jobqueue.ErrNoJobsAvailable) {
					p.sleep(p.cfg.PollInterval)
					continue
				}
				log.Error("claim failed", "error", err)
				p.sleep(time.Second)
			}
		}
	}
}

func (p *Pool) claimAndRun(ctx context.Context, queueName string) error {
	job, err := p.queue.Claim(ctx, []string{queueName}, p.cfg.InstanceID)
	if err != nil {
		return err
	}

	p.trackActive(queueName, 1)
	defer p.trackActive(queueName, -1)

	scope := tenancy.Scope{OrgID: job.OrgID, DealID: job.DealID}
	jobCtx := tenancy.WithScope(ctx, scope)
	jobCtx = logging.WithTraceID(jobCtx, job.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go p.runHeartbeat(heartbeatCtx, job.ID)

	handler := p.registry.handlers[queueName]
	handlerErr := p.runHandler(jobCtx, handler, job)
	cancelHeartbeat()

	if handlerErr != nil {
		return p.queue.Fail(context.Background(), job.ID, handlerErr)
	}
	return p.queue.Complete(context.Background(), job.ID)
}

// runHandler recovers a panicking handler into an error so one bad job
// cannot kill a poller goroutine.
func (p *Pool) runHandler(ctx context.Context, handler jobqueue.Handler, job *jobqueue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (p *Pool) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.queue.Heartbeat(ctx, jobID); err != nil {
				slog.Warn("heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (p *Pool) runOrphanRecovery(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.OrphanTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.queue.RequeueOrphans(ctx, p.cfg.OrphanTimeout)
			if err != nil {
				slog.Error("orphan recovery failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("recovered orphaned jobs", "count", n)
			}
		}
	}
}

func (p *Pool) sleep(d time.Duration) {
	select {
	case <-p.stopCh:
	case <-time.After(d):
	}
}

func (p *Pool) trackActive(queue string, delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[queue] += delta
}

// ActiveCounts returns a snapshot of in-flight job counts per queue, for
// health/metrics endpoints.
func (p *Pool) ActiveCounts() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]int, len(p.active))
	for k, v := range p.active {
		out[k] = v
	}
	return out
}
