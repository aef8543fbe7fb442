package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/core/rescue"
	"github.com/world-in-progress/surfpool/core/threading"
)

// probeTask probes one slot if it is idle when the task runs.
type probeTask struct {
	ctx  context.Context
	pool *Pool
	slot *slot
	done func()
}

func (t *probeTask) GetID() string {
	return fmt.Sprintf("%s/keepalive/%d", t.pool.name, t.slot.index)
}

func (t *probeTask) Process() error {
	defer t.done()

	if t.ctx.Err() != nil || !t.pool.tryLockIdle(t.slot) {
		return nil
	}
	defer t.pool.unlockSlot(t.slot)

	t.pool.probe(t.ctx, t.slot)
	return nil
}

func (p *Pool) startKeepalive(interval time.Duration) {
	ctx, cancel := context.WithCancel(rescue.WithTag(context.Background(), "keepalive:"+p.name))
	p.stopKeepalive = cancel

	// one worker per slot at most, spawned lazily
	p.dispatcher = threading.NewWorkerPool(len(p.slots), len(p.slots), 1)

	p.background.RunSafeCtx(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweep(ctx, interval)
			}
		}
	})
	logger.WithFields(logger.Fields{"pool": p.name, "interval": interval.String()}).Info("keepalive started")
}

// sweep probes every idle slot once. Busy slots are skipped; their traffic keeps them warm.
func (p *Pool) sweep(ctx context.Context, interval time.Duration) {
	var wg sync.WaitGroup
	for _, s := range p.slots {
		wg.Add(1)
		task := &probeTask{ctx: ctx, pool: p, slot: s, done: wg.Done}
		if _, err := p.dispatcher.SubmitTimeout(interval, task); err != nil {
			wg.Done()
			logger.Debug("pool %s: keepalive skipped slot %d: %v", p.name, s.index, err)
		}
	}
	wg.Wait()

	if err := p.flush(ctx); err != nil {
		logger.Error("pool %s: failed to record probes: %v", p.name, err)
	}
}
