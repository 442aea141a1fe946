/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards
  5. RateLimit:  Per-client-IP token bucket (booking storms come in bursts)

ROUTE GROUPS:
  /api/properties/*     Decisions, bookings, snapshots, sweeps, rules
  /api/bookings/*       Booking lookup, cancellation, compensations
  /api/compensations    Compensation ledger
  /api/health           Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// RouterOptions tune the middleware stack.
type RouterOptions struct {
	// RateLimit is requests per second per client IP. Zero disables
	// rate limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if opts.RateLimit > 0 {
		r.Use(rateLimit(opts.RateLimit, opts.RateBurst))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/properties/{id}", func(r chi.Router) {
			r.Post("/decisions", h.Decide)
			r.Post("/bookings", h.CreateBooking)
			r.Get("/snapshot", h.GetSnapshot)
			r.Get("/monitor", h.RunSweep)
			r.Get("/sweeps", h.ListSweepRuns)
			r.Get("/rules", h.GetRule)
			r.Put("/rules", h.SaveRule)
		})

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Get("/", h.GetBooking)
			r.Post("/cancel", h.CancelBooking)
			r.Get("/compensations", h.ListCompensations)
		})

		r.Post("/compensations", h.RecordCompensation)

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// limiterSweepInterval is the minimum spacing between idle-entry sweeps;
// limiterIdleTTL is how long an IP's bucket survives without traffic.
const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = time.Hour
)

// ipLimiters holds one token bucket per client IP. Idle entries are swept
// lazily on lookup, so there is no background goroutine to stop.
type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(rps float64, burst int) *ipLimiters {
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &ipLimiters{
		limiters:  make(map[string]*ipLimiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.lastSweep = now
		for addr, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.limiters, addr)
			}
		}
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiters := newIPLimiters(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiters.get(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
