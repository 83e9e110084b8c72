package server

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const headerRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id attached to the request context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware reuses a caller-supplied UUID request id or mints one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// accessLogMiddleware logs one line per request. Server errors log at error
// level, client errors at warn, health checks at debug.
func accessLogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			case r.URL.Path == "/healthz":
				level = slog.LevelDebug
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.String("request_id", RequestID(r.Context())),
			)
		})
	}
}

// recoveryMiddleware turns a handler panic into a 500, unless a response was already started.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("handler panic", "panic", p, "path", r.URL.Path, "request_id", RequestID(r.Context()))
				if rec.status == 0 {
					writeError(rec, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// clientLimiters hands out one token bucket per client host. The bucket holds
// a minute's worth of requests and refills continuously; idle clients are evicted.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int
	idle    time.Duration

	done chan struct{}
	once sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(requestsPerMinute int) *clientLimiters {
	cl := &clientLimiters{
		clients: make(map[string]*clientLimiter),
		every:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   requestsPerMinute,
		idle:    5 * time.Minute,
		done:    make(chan struct{}),
	}
	if requestsPerMinute > 0 {
		go cl.evictLoop()
	}
	return cl
}

func (cl *clientLimiters) enabled() bool {
	return cl.burst > 0
}

func (cl *clientLimiters) get(host string, now time.Time) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	c, ok := cl.clients[host]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(cl.every, cl.burst)}
		cl.clients[host] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (cl *clientLimiters) evictLoop() {
	ticker := time.NewTicker(cl.idle)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			cl.mu.Lock()
			for host, c := range cl.clients {
				if now.Sub(c.lastSeen) > cl.idle {
					delete(cl.clients, host)
				}
			}
			cl.mu.Unlock()
		case <-cl.done:
			return
		}
	}
}

// Stop ends the eviction loop. Safe to call more than once.
func (cl *clientLimiters) Stop() {
	cl.once.Do(func() { close(cl.done) })
}

// middleware rejects a client's request with 429 when its bucket is empty,
// with Retry-After set to the wait for the next token.
func (cl *clientLimiters) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		now := time.Now()
		res := cl.get(host, now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
