package ratelimit

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// PerIP throttles requests per client IP. Used on the auth/OTP routes so a
// single host cannot hammer code issuance.
type PerIP struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewPerIP(r rate.Limit, burst int) *PerIP {
	return &PerIP{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (p *PerIP) limiter(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[ip]
	if !ok {
		l = rate.NewLimiter(p.rate, p.burst)
		p.limiters[ip] = l
	}
	return l
}

func (p *PerIP) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !p.limiter(c.RealIP()).Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Quá nhiều yêu cầu. Vui lòng thử lại sau.")
		}
		return next(c)
	}
}
