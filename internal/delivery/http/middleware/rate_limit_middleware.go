package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"clinic-calendar/pkg/response"

	"golang.org/x/time/rate"
)

const (
	rateLimitSweepInterval = time.Minute
	rateLimitIdleTimeout   = 3 * time.Minute
)

type rateLimitClient struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimitMiddleware applies a token bucket per client IP to mutating requests
type RateLimitMiddleware struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	limit   rate.Limit
	burst   int

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewRateLimitMiddleware(rps float64, burst int) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		clients:  make(map[string]*rateLimitClient),
		limit:    rate.Limit(rps),
		burst:    burst,
		stopChan: make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Stop ends the idle-client sweeper. Safe to call multiple times.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *RateLimitMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if !m.get(clientIP(r)).Allow() {
			response.TooManyRequests(w, "Too many requests, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) get(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[ip]; ok {
		c.seen = time.Now()
		return c.limiter
	}
	l := rate.NewLimiter(m.limit, m.burst)
	m.clients[ip] = &rateLimitClient{limiter: l, seen: time.Now()}
	return l
}

func (m *RateLimitMiddleware) sweepLoop() {
	ticker := time.NewTicker(rateLimitSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.mu.Lock()
			for ip, c := range m.clients {
				if time.Since(c.seen) > rateLimitIdleTimeout {
					delete(m.clients, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
