package pool

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/core/structure"
	"github.com/world-in-progress/surfpool/core/threading"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

const (
	historySize = 256
	pendingSize = 1024
)

type (
	slot struct {
		index     int
		mu        sync.Mutex
		client    *http.Client
		transport *http.Transport
	}

	// Pool holds a fixed set of HTTP clients and hands them out one Handler at a time.
	//
	// Every holder of a slot lock also holds one semaphore permit and unlocks the
	// slot before giving the permit back. Hence a caller that got a permit always
	// finds an unlocked slot.
	Pool struct {
		name        string
		slots       []*slot
		sem         *semaphore.Weighted
		healthCheck *caller.Request
		timeout     time.Duration
		recorder    Recorder
		metrics     Metrics
		tracer      trace.Tracer

		pending   *structure.RingBuffer[Probe]
		historyMu sync.Mutex
		history   []Probe
		last      []*Probe

		inUse         atomic.Int64
		waiting       atomic.Int64
		acquired      atomic.Int64
		probes        atomic.Int64
		probeFailures atomic.Int64
		dropped       atomic.Int64

		closed        atomic.Bool
		closeCtx      context.Context
		closeCancel   context.CancelFunc
		closeOnce     sync.Once
		stopKeepalive context.CancelFunc
		dispatcher    *threading.WorkerPool
		background    *threading.RoutineGroup
	}

	// Stats is a snapshot of pool counters.
	Stats struct {
		Name           string `json:"name"`
		Size           int    `json:"size"`
		InUse          int64  `json:"inUse"`
		Waiting        int64  `json:"waiting"`
		Acquired       int64  `json:"acquired"`
		Probes         int64  `json:"probes"`
		ProbeFailures  int64  `json:"probeFailures"`
		DroppedRecords int64  `json:"droppedRecords"`
		Closed         bool   `json:"closed"`
	}

	SlotStatus struct {
		Index     int    `json:"index"`
		Busy      bool   `json:"busy"`
		LastProbe *Probe `json:"lastProbe,omitempty"`
	}

	// Report is the result of Check.
	Report struct {
		Pool    string       `json:"pool"`
		Time    time.Time    `json:"time"`
		Healthy bool         `json:"healthy"`
		Slots   []SlotStatus `json:"slots"`
	}
)

func newPool(b *Builder) *Pool {
	b.resolve()

	p := &Pool{
		name:        b.name,
		slots:       make([]*slot, b.size),
		sem:         semaphore.NewWeighted(int64(b.size)),
		healthCheck: b.healthCheck,
		timeout:     b.timeout,
		recorder:    b.recorder,
		metrics:     b.metrics,
		tracer:      b.tracer.Tracer(tracerName),
		last:        make([]*Probe, b.size),
		background:  threading.NewRoutineGroup(),
	}
	p.closeCtx, p.closeCancel = context.WithCancel(context.Background())
	if p.recorder != nil {
		p.pending = structure.NewRingBuffer[Probe](pendingSize)
	}

	for i := range p.slots {
		transport := b.transport()
		p.slots[i] = &slot{
			index:     i,
			transport: transport,
			client: &http.Client{
				Transport: transport,
				Timeout:   b.timeout,
			},
		}
	}
	return p
}

func (p *Pool) Name() string {
	return p.name
}

// Size returns the number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.slots)
}

// GetHandler returns a handler owning one of the pool's clients.
// If every client is taken, it waits until a handler is released, ctx is done
// or the pool is closed. Release the handler after use, or other callers starve.
func (p *Pool) GetHandler(ctx context.Context) (*Handler, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	acquireCtx, stop := p.bindClose(ctx)
	defer stop()

	p.waiting.Inc()
	err := p.sem.Acquire(acquireCtx, 1)
	p.waiting.Dec()
	if err != nil {
		if p.closed.Load() {
			return nil, ErrPoolClosed
		}
		return nil, err
	}

	return p.takeSlot(time.Since(start))
}

// TryGetHandler is the non-blocking variant of GetHandler.
func (p *Pool) TryGetHandler() (*Handler, bool) {
	if p.closed.Load() || !p.sem.TryAcquire(1) {
		return nil, false
	}
	h, err := p.takeSlot(0)
	return h, err == nil
}

// takeSlot must be called holding one permit. The permit is returned on failure.
// Permit holders never outnumber slots, so some slot is always free. Probes lock
// fixed slots, so a single pass can miss it and the scan repeats until a lock sticks.
func (p *Pool) takeSlot(wait time.Duration) (*Handler, error) {
	if p.closed.Load() {
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}

	for {
		for _, s := range p.slots {
			if s.mu.TryLock() {
				p.inUse.Inc()
				p.acquired.Inc()
				p.metrics.HandlerAcquired(wait)
				return &Handler{pool: p, slot: s}, nil
			}
		}
		runtime.Gosched()
	}
}

// bindClose derives a context that is also canceled when the pool closes.
func (p *Pool) bindClose(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(p.closeCtx, cancel)
	return ctx, func() {
		stopAfter()
		cancel()
	}
}

// tryLockIdle takes slot s for internal use without waiting.
// It refuses when callers are queued on the semaphore.
func (p *Pool) tryLockIdle(s *slot) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	if !s.mu.TryLock() {
		p.sem.Release(1)
		return false
	}
	return true
}

func (p *Pool) unlockSlot(s *slot) {
	s.mu.Unlock()
	p.sem.Release(1)
}

// Check sends the health check through every idle client and reports per-slot status.
// Busy slots keep their last known probe.
func (p *Pool) Check(ctx context.Context) Report {
	report := Report{
		Pool:  p.name,
		Time:  time.Now(),
		Slots: make([]SlotStatus, len(p.slots)),
	}

	// lock idle slots one by one first, so a busy pool never reports a free slot as busy
	probing := p.healthCheck != nil && !p.closed.Load()
	locked := make([]bool, len(p.slots))
	for i, s := range p.slots {
		report.Slots[i] = SlotStatus{Index: i, LastProbe: p.lastProbe(i)}
		if !p.tryLockIdle(s) {
			report.Slots[i].Busy = true
			continue
		}
		if probing {
			locked[i] = true
		} else {
			p.unlockSlot(s)
		}
	}

	var wg conc.WaitGroup
	for i, s := range p.slots {
		if !locked[i] {
			continue
		}
		wg.Go(func() {
			defer p.unlockSlot(s)
			probe := p.probe(ctx, s)
			report.Slots[i].LastProbe = &probe
		})
	}
	wg.Wait()

	if err := p.flush(ctx); err != nil {
		logger.Error("pool %s: failed to record probes: %v", p.name, err)
	}

	report.Healthy = !p.closed.Load()
	for _, status := range report.Slots {
		if status.LastProbe != nil && !status.LastProbe.Healthy() {
			report.Healthy = false
		}
	}
	return report
}

func (p *Pool) probe(ctx context.Context, s *slot) Probe {
	ctx, span := p.tracer.Start(ctx, "surfpool.probe", trace.WithAttributes(
		attribute.String("surfpool.pool", p.name),
		attribute.Int("surfpool.slot", s.index),
		attribute.String("http.url", p.healthCheck.URL),
	))
	defer span.End()

	result := Probe{Slot: s.index, StartedAt: time.Now()}
	resp, err := p.healthCheck.Execute(ctx, s.client)
	result.Latency = time.Since(result.StartedAt)
	if resp != nil {
		result.StatusCode = resp.StatusCode
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	if err != nil {
		result.Err = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	p.observe(result)
	return result
}

func (p *Pool) observe(probe Probe) {
	p.probes.Inc()
	if !probe.Healthy() {
		p.probeFailures.Inc()
		logger.WithFields(logger.Fields{"pool": p.name, "slot": probe.Slot}).
			Warnf("health check failed: %s", probe.Err)
	}
	p.metrics.ProbeObserved(probe)

	p.historyMu.Lock()
	stored := probe
	p.last[probe.Slot] = &stored
	p.history = append(p.history, probe)
	if len(p.history) > historySize {
		p.history = p.history[len(p.history)-historySize:]
	}
	p.historyMu.Unlock()

	if p.pending != nil && !p.pending.Push(probe) {
		p.dropped.Inc()
	}
}

func (p *Pool) lastProbe(index int) *Probe {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()

	if p.last[index] == nil {
		return nil
	}
	probe := *p.last[index]
	return &probe
}

// Probes returns the most recent probes, oldest first.
func (p *Pool) Probes() []Probe {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()

	out := make([]Probe, len(p.history))
	copy(out, p.history)
	return out
}

// flush hands buffered probes to the recorder.
func (p *Pool) flush(ctx context.Context) error {
	if p.pending == nil {
		return nil
	}
	batch := p.pending.Drain(0)
	if len(batch) == 0 {
		return nil
	}
	return p.recorder.Record(ctx, p.name, batch)
}

func (p *Pool) Stats() Stats {
	return Stats{
		Name:           p.name,
		Size:           len(p.slots),
		InUse:          p.inUse.Load(),
		Waiting:        p.waiting.Load(),
		Acquired:       p.acquired.Load(),
		Probes:         p.probes.Load(),
		ProbeFailures:  p.probeFailures.Load(),
		DroppedRecords: p.dropped.Load(),
		Closed:         p.closed.Load(),
	}
}

// Close stops keepalive, wakes waiting callers with ErrPoolClosed, closes idle
// connections and flushes pending probe records. Handlers still out may be used
// and released normally.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeCancel()

		if p.stopKeepalive != nil {
			p.stopKeepalive()
		}
		p.background.Wait()
		if p.dispatcher != nil {
			p.dispatcher.Stop()
		}

		for _, s := range p.slots {
			s.transport.CloseIdleConnections()
		}

		err = multierr.Append(err, p.flush(context.Background()))
		logger.WithFields(logger.Fields{"pool": p.name}).Info("pool closed")
	})
	return err
}
