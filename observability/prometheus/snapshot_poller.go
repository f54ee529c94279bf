package prometheus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofibre/runtime/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current Scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// ThreadPoolSnapshotProvider provides current ThreadPool stats snapshots.
type ThreadPoolSnapshotProvider interface {
	Stats() core.ThreadPoolStats
}

// SnapshotPoller periodically exports Scheduler/ThreadPool Stats() snapshots
// into Prometheus gauges, for drivers whose own RuntimeMetrics hook isn't
// wired (or as a belt-and-suspenders cross-check against it).
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]ThreadPoolSnapshotProvider

	schedulerQueueDepth *prom.GaugeVec
	schedulerResumed    *prom.GaugeVec
	schedulerExpired    *prom.GaugeVec
	schedulerExceptions *prom.GaugeVec

	poolQueueDepth *prom.GaugeVec
	poolWorkers    *prom.GaugeVec
	poolResumed    *prom.GaugeVec
	poolExpired    *prom.GaugeVec
	poolExceptions *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedulerQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "scheduler_queue_depth",
		Help:      "Scheduler priority queue depth snapshot.",
	}, []string{"scheduler", "priority"})
	schedulerResumed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "scheduler_resumed_total",
		Help:      "Scheduler resumed-fibre count snapshot.",
	}, []string{"scheduler"})
	schedulerExpired := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "scheduler_expired_total",
		Help:      "Scheduler expired-fibre count snapshot.",
	}, []string{"scheduler"})
	schedulerExceptions := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "scheduler_exceptions_total",
		Help:      "Scheduler uncaught-exception count snapshot.",
	}, []string{"scheduler"})

	poolQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "pool_queue_depth",
		Help:      "ThreadPool priority queue depth snapshot.",
	}, []string{"pool", "priority"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "pool_workers",
		Help:      "ThreadPool worker count snapshot.",
	}, []string{"pool"})
	poolResumed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "pool_resumed_total",
		Help:      "ThreadPool resumed-fibre count snapshot.",
	}, []string{"pool"})
	poolExpired := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "pool_expired_total",
		Help:      "ThreadPool expired-fibre count snapshot.",
	}, []string{"pool"})
	poolExceptions := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fibre",
		Name:      "pool_exceptions_total",
		Help:      "ThreadPool uncaught-exception count snapshot.",
	}, []string{"pool"})

	var err error
	if schedulerQueueDepth, err = registerCollector(reg, schedulerQueueDepth); err != nil {
		return nil, err
	}
	if schedulerResumed, err = registerCollector(reg, schedulerResumed); err != nil {
		return nil, err
	}
	if schedulerExpired, err = registerCollector(reg, schedulerExpired); err != nil {
		return nil, err
	}
	if schedulerExceptions, err = registerCollector(reg, schedulerExceptions); err != nil {
		return nil, err
	}
	if poolQueueDepth, err = registerCollector(reg, poolQueueDepth); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolResumed, err = registerCollector(reg, poolResumed); err != nil {
		return nil, err
	}
	if poolExpired, err = registerCollector(reg, poolExpired); err != nil {
		return nil, err
	}
	if poolExceptions, err = registerCollector(reg, poolExceptions); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:            interval,
		schedulers:          make(map[string]SchedulerSnapshotProvider),
		pools:               make(map[string]ThreadPoolSnapshotProvider),
		schedulerQueueDepth: schedulerQueueDepth,
		schedulerResumed:    schedulerResumed,
		schedulerExpired:    schedulerExpired,
		schedulerExceptions: schedulerExceptions,
		poolQueueDepth:      poolQueueDepth,
		poolWorkers:         poolWorkers,
		poolResumed:         poolResumed,
		poolExpired:         poolExpired,
		poolExceptions:      poolExceptions,
	}, nil
}

// AddScheduler adds or replaces a Scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// AddThreadPool adds or replaces a ThreadPool snapshot provider by name.
func (p *SnapshotPoller) AddThreadPool(name string, provider ThreadPoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		for _, qd := range stats.Queues {
			p.schedulerQueueDepth.WithLabelValues(name, fmt.Sprintf("%d", qd.Priority)).Set(float64(qd.Depth))
		}
		p.schedulerResumed.WithLabelValues(name).Set(float64(stats.Resumed))
		p.schedulerExpired.WithLabelValues(name).Set(float64(stats.Expired))
		p.schedulerExceptions.WithLabelValues(name).Set(float64(stats.Exceptions))
	}
	p.schedulersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		for _, qd := range stats.Queues {
			p.poolQueueDepth.WithLabelValues(name, fmt.Sprintf("%d", qd.Priority)).Set(float64(qd.Depth))
		}
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolResumed.WithLabelValues(name).Set(float64(stats.Resumed))
		p.poolExpired.WithLabelValues(name).Set(float64(stats.Expired))
		p.poolExceptions.WithLabelValues(name).Set(float64(stats.Exceptions))
	}
	p.poolsMu.RUnlock()
}
