package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"moviedb/proj/internal/domain/models"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = time.Minute
	limiterClientTTL       = 5 * time.Minute
)

func (app *Application) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				w.Header().Set("Connection", "close")
				app.Http.ServerError(w, r, err, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps a token bucket per client ip.
type ipRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	rps     rate.Limit
	burst   int
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		clients: make(map[string]*rateClient),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[ip]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

func (l *ipRateLimiter) cleanup(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if time.Since(c.lastSeen) > ttl {
			delete(l.clients, ip)
		}
	}
}

func (app *Application) RateLimiter(next http.Handler) http.Handler {
	const op = "middlewares.RateLimiter"
	log := app.log.With("op", op)
	if !app.cfg.Limiter.Enabled {
		return next
	}
	limiters := newIPRateLimiter(app.cfg.Limiter.Rps, app.cfg.Limiter.Burst)
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			limiters.cleanup(limiterClientTTL)
		}
	}()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.Http.ServerError(w, r, err, "")
			return
		}
		limiter := limiters.get(ip)
		if !limiter.Allow() {
			log.Warn("rate limit exceeded", "ip", ip)
			app.Http.TooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type CtxKey string

const CtxKeySession CtxKey = "session"

// tokenFromRequest reads the bearer token from the Authorization header. Browsers
// can't set headers on WebSocket handshakes, so access_token in the query is
// accepted as well.
func tokenFromRequest(r *http.Request) (token string, ok bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("access_token"), true
	}
	const bearerLength = len("Bearer ")
	if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) < bearerLength+1 {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// Authenticate resolves the request token to a live session. Unknown or expired
// tokens leave the request anonymous.
func (app *Application) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session

		token, ok := tokenFromRequest(r)
		if !ok {
			app.log.Warn("Invalid auth header")
			app.Http.BadRequest(w, r, "Invalid Authorization header, should be 'Bearer <token>'")
			return
		}
		if token != "" {
			var err error
			session, err = app.Services.Auth.GetSession(r.Context(), token)
			if err != nil {
				app.Http.ServerError(w, r, err, "")
				return
			}
			if session != nil {
				app.Services.State.Ensure(session)
			} else {
				app.log.Debug("Unknown or expired token")
			}
		}
		r = r.WithContext(context.WithValue(r.Context(), CtxKeySession, session))
		next.ServeHTTP(w, r)
	})
}

func (app *Application) requireAuthenticatedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFromCtx(r) == nil {
			app.Http.Unauthorized(w, r, "You must be authenticated to access this resource")
			return
		}
		next.ServeHTTP(w, r)
	})
}
