package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleEviction = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newRateLimiterPool(rps float64, burst int) *rateLimiterPool {
	return &rateLimiterPool{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (p *rateLimiterPool) allow(clientIP string) bool {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	client, ok := p.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.clients[clientIP] = client
	}
	client.lastSeen = now

	for ip, entry := range p.clients {
		if now.Sub(entry.lastSeen) > limiterIdleEviction {
			delete(p.clients, ip)
		}
	}

	return client.limiter.Allow()
}

// rateLimitMiddleware bounds request rates per client IP.
func rateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	pool := newRateLimiterPool(rps, burst)
	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
