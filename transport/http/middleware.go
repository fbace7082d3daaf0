package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/service"
	"golang.org/x/time/rate"
)

const (
	sessionKey     = "session"
	accessTokenKey = "accessToken"
)

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(svc *service.LoginService, h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || !strings.EqualFold(auth[:7], "Bearer ") {
			writeErrorCode(c, http.StatusUnauthorized, "invalid_token", "invalid authorization header")
			return
		}
		token := auth[7:]

		session, err := svc.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			h.writeError(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Set(accessTokenKey, token)

		c.Next()
	}
}

func sessionFrom(c *gin.Context) (*core.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*core.Session)
	return session, ok
}

// ClientLimiter applies a token bucket per client IP and periodically
// evicts idle entries.
type ClientLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*clientEntry
	hits    uint64
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter returns nil, which allows everything, if rps or burst is
// not positive.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &ClientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		clients: make(map[string]*clientEntry),
	}
}

// Allow reports whether one request from client may proceed at now.
func (l *ClientLimiter) Allow(client string, now time.Time) bool {
	if l == nil || client == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[client]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.clients {
			if v.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}
	return allowed
}

// RateLimitMiddleware rejects requests over the per-client budget with 429.
func RateLimitMiddleware(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP(), time.Now()) {
			writeErrorCode(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request at DEBUG, or WARN for 5xx.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
