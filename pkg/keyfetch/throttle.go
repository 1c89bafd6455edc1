package keyfetch

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxClients is how many tracked clients trigger a sweep of idle ones
	maxClients = 4096

	clientIdle = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientThrottle limits lookups per client address, with a burst of twice
// the per-second rate
type clientThrottle struct {
	limit      rate.Limit
	burst      int
	maxClients int
	clients    map[string]*clientLimiter
	now        func() time.Time
	mu         sync.Mutex
}

func newClientThrottle(perSecond int) *clientThrottle {
	return &clientThrottle{
		limit:      rate.Limit(perSecond),
		burst:      2 * perSecond,
		maxClients: maxClients,
		clients:    make(map[string]*clientLimiter),
		now:        time.Now,
	}
}

func (ct *clientThrottle) allow(client string) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	now := ct.now()
	entry, ok := ct.clients[client]
	if !ok {
		if len(ct.clients) >= ct.maxClients {
			ct.dropIdle(now)
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(ct.limit, ct.burst)}
		ct.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (ct *clientThrottle) dropIdle(now time.Time) {
	for client, entry := range ct.clients {
		if now.Sub(entry.lastSeen) > clientIdle {
			delete(ct.clients, client)
		}
	}
}

func (ct *clientThrottle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			client = host
		}
		if !ct.allow(client) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
