package lecture

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/trezcool/masomo-live/core"
)

// Reap evicts every room member whose last heartbeat is older than the heartbeat
// timeout, through the same teardown as an explicit leave, and closes its transport.
// It returns the number of evicted sessions.
func (svc *Service) Reap() int {
	if svc.opts.HeartbeatTimeout <= 0 {
		return 0
	}
	deadline := svc.now().Add(-svc.opts.HeartbeatTimeout)

	var evicted int
	for _, sess := range svc.registry.Sessions() {
		if sess.RoomID() == "" || !sess.LastActivity().Before(deadline) {
			continue
		}
		if _, ok := svc.registry.Unbind(sess.ConnectionID()); !ok {
			continue // disconnected meanwhile
		}
		svc.teardown(sess)
		sess.conn.Close()
		metricEvictions.Inc()
		evicted++
	}
	return evicted
}

// Reaper runs Service.Reap at a fixed interval.
type Reaper struct {
	svc      *Service
	logger   core.Logger
	clock    clock.Clock
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReaper(svc *Service, logger core.Logger, interval time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reaper{
		svc:      svc,
		logger:   logger,
		clock:    svc.clock,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run sweeps until ctx is done or Stop is called.
func (rp *Reaper) Run(ctx context.Context) error {
	rp.wg.Add(1)
	defer rp.wg.Done()

	ticker := rp.clock.Ticker(rp.interval)
	defer ticker.Stop()

	rp.logger.Info("reaper started, interval " + rp.interval.String())
	for {
		select {
		case <-ticker.C:
			if n := rp.svc.Reap(); n > 0 {
				rp.logger.Info("reaper evicted inactive sessions", map[string]interface{}{"count": n})
			}
		case <-ctx.Done():
			rp.logger.Info("reaper stopping")
			return nil
		case <-rp.ctx.Done():
			rp.logger.Info("reaper stopping")
			return nil
		}
	}
}

func (rp *Reaper) Stop() {
	rp.cancel()
	rp.wg.Wait()
}
