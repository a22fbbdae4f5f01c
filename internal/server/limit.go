package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// DefaultAttemptRate allows one password attempt per second per client on average.
	DefaultAttemptRate = rate.Limit(1)
	// DefaultAttemptBurst is the number of attempts a client may make back to back.
	DefaultAttemptBurst = 10

	// clientIdleTTL is how long an untouched bucket is kept. Must exceed the refill
	// time of an empty bucket.
	clientIdleTTL = 10 * time.Minute
	// maxClients caps the number of tracked clients. At the cap the least recently seen
	// client is dropped.
	maxClients = 10_000
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientBucket
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limit:   limit,
		burst:   burst,
		idleTTL: clientIdleTTL,
		max:     maxClients,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	bucket, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= l.max {
			l.evictOldest()
		}

		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = bucket
	}

	bucket.lastSeen = now

	return bucket.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleTTL.
func (l *clientLimiter) sweep(now time.Time) {
	for client, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) >= l.idleTTL {
			delete(l.clients, client)
		}
	}

	l.lastSweep = now
}

func (l *clientLimiter) evictOldest() {
	var (
		oldest string
		seen   time.Time
		found  bool
	)

	for client, bucket := range l.clients {
		if !found || bucket.lastSeen.Before(seen) {
			oldest, seen, found = client, bucket.lastSeen, true
		}
	}

	if found {
		delete(l.clients, oldest)
	}
}

// middleware rejects requests with 429 once the client's bucket is empty.
func (l *clientLimiter) middleware(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.allow(c.ClientIP()) {
			c.Next()

			return
		}

		s.logger.WithField("remote", c.ClientIP()).Warn("password attempts rate limited")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	}
}
