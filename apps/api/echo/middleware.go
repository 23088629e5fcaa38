package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/trezcool/academia/services/metrics"
)

// metricsMiddleware records the response time and error status of every routed request.
// Errors are rendered here so the final status is known.
func metricsMiddleware(m *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveAPI(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func newLimiterPool(rps float64) *limiterPool {
	if rps <= 0 {
		rps = 2
	}
	burst := int(2 * rps)
	if burst < 1 {
		burst = 1
	}
	return &limiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// rateLimitMiddleware rejects callers, keyed by client IP, that exceed rps (burst 2x).
func rateLimitMiddleware(rps float64, m *metricsvc.Metrics) echo.MiddlewareFunc {
	pool := newLimiterPool(rps)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !pool.Allow(ctx.RealIP()) {
				m.RateLimitedInc(ctx.Path())
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
