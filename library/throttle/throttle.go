// Package throttle limits request rates globally and per key.
package throttle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"golang.org/x/time/rate"
)

const defaultEachKeyIdle = 10 * time.Minute

// Config configuration for Throttle
type Config struct {
	TotalNPerSec, TotalBurst     int
	EachKeyNPerSec, EachKeyBurst int

	// EachKeyIdle drops a key's bucket after it has not been used for this long.
	// It is raised to the time an empty bucket needs to refill, so a dropped
	// key comes back with the tokens it would have had anyway.
	EachKeyIdle time.Duration
}

type keyLimiter struct {
	*rate.Limiter
	lastSeen atomic.Int64
}

// Throttle is a token bucket shared by all callers plus one bucket per key.
type Throttle struct {
	sync.Mutex
	cfg       Config
	total     *rate.Limiter
	keys      *sync.Map
	now       func() time.Time
	lastPrune atomic.Int64
}

// New create new Throttle
func New(cfg Config) (*Throttle, error) {
	if cfg.TotalNPerSec <= 0 || cfg.EachKeyNPerSec <= 0 {
		return nil, errors.New("NPerSec must bigger than 0")
	}
	if cfg.TotalBurst < cfg.TotalNPerSec || cfg.EachKeyBurst < cfg.EachKeyNPerSec {
		return nil, errors.New("burst must bigger than NPerSec")
	}
	if cfg.EachKeyIdle <= 0 {
		cfg.EachKeyIdle = defaultEachKeyIdle
	}
	refill := time.Duration(cfg.EachKeyBurst) * time.Second / time.Duration(cfg.EachKeyNPerSec)
	if cfg.EachKeyIdle < refill {
		cfg.EachKeyIdle = refill
	}

	t := &Throttle{
		cfg:   cfg,
		total: rate.NewLimiter(rate.Limit(cfg.TotalNPerSec), cfg.TotalBurst),
		keys:  new(sync.Map),
		now:   time.Now,
	}
	t.lastPrune.Store(t.now().UnixNano())
	return t, nil
}

func (t *Throttle) limiterFor(key string, now time.Time) *keyLimiter {
	if l, ok := t.keys.Load(key); ok {
		return l.(*keyLimiter)
	}

	t.Lock()
	defer t.Unlock()
	if l, ok := t.keys.Load(key); ok {
		return l.(*keyLimiter)
	}
	l := &keyLimiter{Limiter: rate.NewLimiter(rate.Limit(t.cfg.EachKeyNPerSec), t.cfg.EachKeyBurst)}
	l.lastSeen.Store(now.UnixNano())
	t.keys.Store(key, l)
	return l
}

// Allow reports whether key may proceed now. A token is only taken from the
// shared bucket when the key's own bucket allows the call.
func (t *Throttle) Allow(key string) bool {
	now := t.now()
	t.prune(now)

	l := t.limiterFor(key, now)
	l.lastSeen.Store(now.UnixNano())
	return l.AllowN(now, 1) && t.total.AllowN(now, 1)
}

// prune drops idle keys, at most once per idle period.
func (t *Throttle) prune(now time.Time) {
	last := t.lastPrune.Load()
	if now.UnixNano()-last < int64(t.cfg.EachKeyIdle) || !t.lastPrune.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-t.cfg.EachKeyIdle).UnixNano()
	t.Lock()
	defer t.Unlock()
	t.keys.Range(func(k, v any) bool {
		if v.(*keyLimiter).lastSeen.Load() < cutoff {
			t.keys.Delete(k)
		}
		return true
	})
}
