// Package monitor watches a running farm for stalls and failed probes
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// UnhealthyCallback is called when a check fails or the loop stalls
type UnhealthyCallback func(reason string, err error)

// Probe is a named health check
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthChecker runs probes periodically and watches a progress counter.
// The loop is stuck when the counter does not move for stuckTimeout while
// active, stuckThreshold times in a row.
type HealthChecker struct {
	probes   []Probe
	progress func() int64
	active   func() bool

	lastProgress     int64
	lastActivityTime time.Time
	stuckCount       int
	stuckThreshold   int
	stuckTimeout     time.Duration
	checkInterval    time.Duration
	stuckInterval    time.Duration
	onUnhealthy      UnhealthyCallback
	now              func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthChecker creates a checker with no probes
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		lastActivityTime: time.Now(),
		stuckThreshold:   3,
		stuckTimeout:     30 * time.Second,
		checkInterval:    10 * time.Second,
		stuckInterval:    5 * time.Second,
		now:              time.Now,
	}
}

// WithUnhealthyCallback sets the callback for unhealthy events
func (hc *HealthChecker) WithUnhealthyCallback(callback UnhealthyCallback) *HealthChecker {
	hc.onUnhealthy = callback
	return hc
}

// WithCheckInterval sets the probe interval
func (hc *HealthChecker) WithCheckInterval(interval time.Duration) *HealthChecker {
	hc.checkInterval = interval
	return hc
}

// WithStuckDetection sets how long the counter may stand still and how
// many consecutive stalls trigger the callback
func (hc *HealthChecker) WithStuckDetection(timeout time.Duration, threshold int) *HealthChecker {
	hc.stuckTimeout = timeout
	if threshold < 1 {
		threshold = 1
	}
	hc.stuckThreshold = threshold
	if timeout/2 < hc.stuckInterval {
		hc.stuckInterval = timeout / 2
	}
	return hc
}

// WithProgress sets the counter to watch and when watching applies
func (hc *HealthChecker) WithProgress(progress func() int64, active func() bool) *HealthChecker {
	hc.progress = progress
	hc.active = active
	return hc
}

// AddProbe registers a check
func (hc *HealthChecker) AddProbe(name string, check func(ctx context.Context) error) *HealthChecker {
	hc.probes = append(hc.probes, Probe{Name: name, Check: check})
	return hc
}

// Start begins monitoring. Starting twice is a no-op.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.cancel != nil {
		return
	}

	ctx, hc.cancel = context.WithCancel(ctx)
	hc.lastActivityTime = hc.now()
	hc.wg.Add(2)
	go hc.monitorStuck(ctx)
	go hc.monitorHealth(ctx)
}

// Stop stops monitoring
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	cancel := hc.cancel
	hc.cancel = nil
	hc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	hc.wg.Wait()
}

// RecordActivity resets stuck detection
func (hc *HealthChecker) RecordActivity() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastActivityTime = hc.now()
	hc.stuckCount = 0
}

func (hc *HealthChecker) monitorStuck(ctx context.Context) {
	defer hc.wg.Done()
	if hc.progress == nil {
		return
	}

	ticker := time.NewTicker(hc.stuckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.checkIfStuck()
		}
	}
}

func (hc *HealthChecker) checkIfStuck() {
	hc.mu.Lock()

	now := hc.now()
	if n := hc.progress(); n != hc.lastProgress || (hc.active != nil && !hc.active()) {
		hc.lastProgress = n
		hc.lastActivityTime = now
		hc.stuckCount = 0
		hc.mu.Unlock()
		return
	}

	since := now.Sub(hc.lastActivityTime)
	if since <= hc.stuckTimeout {
		hc.mu.Unlock()
		return
	}

	hc.stuckCount++
	if hc.stuckCount < hc.stuckThreshold {
		hc.mu.Unlock()
		return
	}
	hc.stuckCount = 0
	fn := hc.onUnhealthy
	hc.mu.Unlock()

	if fn != nil {
		fn("loop_stalled", fmt.Errorf("no progress for %v", since.Round(time.Second)))
	}
}

func (hc *HealthChecker) monitorHealth(ctx context.Context) {
	defer hc.wg.Done()
	if len(hc.probes) == 0 {
		return
	}

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.RunProbes(ctx)
		}
	}
}

// RunProbes runs every probe with a 5s timeout each and reports the first failure
func (hc *HealthChecker) RunProbes(ctx context.Context) error {
	for _, p := range hc.probes {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Check(pctx)
		cancel()
		if err != nil {
			err = fmt.Errorf("%s check failed: %w", p.Name, err)
			if hc.onUnhealthy != nil {
				hc.onUnhealthy(p.Name+"_failed", err)
			}
			return err
		}
	}
	return nil
}
