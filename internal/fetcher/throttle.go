package fetcher

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// MinRequestInterval is the minimum spacing between requests to one hostname.
const MinRequestInterval = 2 * time.Second

// Throttle serializes requests per hostname so that no domain sees two
// requests closer together than the minimum interval, even when several
// buildings on the same domain are scraped concurrently. It is shared,
// mutable state and must be injected rather than held as a package global
// so tests can instantiate independent throttles.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle with the default interval.
func NewThrottle() *Throttle {
	return NewThrottleInterval(MinRequestInterval)
}

// NewThrottleInterval creates a throttle with a custom interval.
func NewThrottleInterval(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until a request to rawURL's hostname is allowed, then records
// the request time. Different hostnames never delay each other.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Hostname()

	t.mu.Lock()
	now := t.now()
	wait := time.Duration(0)
	if last, ok := t.last[host]; ok {
		if elapsed := now.Sub(last); elapsed < t.interval {
			wait = t.interval - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent callers to the same
	// host queue behind this request instead of racing it.
	t.last[host] = now.Add(wait)
	t.mu.Unlock()

	if wait > 0 {
		return t.sleep(ctx, wait)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
