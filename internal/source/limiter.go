package source

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// Limiter enforces the scope-configured minimum inter-request interval per
// source kind. Burst is 1: the interval is a floor, not an average.
type Limiter struct {
	limiters map[model.SourceKind]*rate.Limiter
	mu       sync.Mutex
	fallback *rate.Limiter
}

// NewLimiter builds a limiter from the scope's rate_limits section.
func NewLimiter(sc *scope.Scope) *Limiter {
	l := &Limiter{
		limiters: make(map[model.SourceKind]*rate.Limiter),
		fallback: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	intervals := map[model.SourceKind]int{
		model.SourceGithub:  sc.RateLimits.GithubMinIntervalMS,
		model.SourcePaste:   sc.RateLimits.PasteMinIntervalMS,
		model.SourceCT:      sc.RateLimits.CTMinIntervalMS,
		model.SourceLanding: sc.RateLimits.LandingMinIntervalMS,
	}
	for kind, ms := range intervals {
		if ms <= 0 {
			continue
		}
		l.limiters[kind] = rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
	}
	return l
}

// Wait blocks until the source kind's interval has elapsed or the context is
// cancelled. Offline and fixture collection is never throttled.
func (l *Limiter) Wait(ctx context.Context, kind model.SourceKind) error {
	if kind == model.SourceOffline || kind == model.SourceFixture {
		return nil
	}
	return l.limiterFor(kind).Wait(ctx)
}

func (l *Limiter) limiterFor(kind model.SourceKind) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[kind]; ok {
		return lim
	}
	return l.fallback
}
