package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	authMaxFailures  = 10
	authWindow       = time.Minute
	authBlockFor     = 5 * time.Minute
	authCleanupEvery = 64
)

// authRateLimiter blocks a client after repeated bad bearer tokens.
type authRateLimiter struct {
	mu          sync.Mutex
	clients     map[string]authClientState
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	staleAfter  time.Duration
	ops         int
}

type authClientState struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newAuthRateLimiter(maxFailures int, window, blockFor time.Duration) *authRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockFor)
	return &authRateLimiter{
		clients:     make(map[string]authClientState),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		staleAfter:  max(staleAfter, 10*time.Minute),
	}
}

// Blocked reports whether client is inside a block period.
func (l *authRateLimiter) Blocked(client string, now time.Time) bool {
	if l == nil || client == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.clients[client]
	st.lastSeen = now
	blocked := now.Before(st.blockedUntil)
	if !blocked {
		st.blockedUntil = time.Time{}
	}
	l.clients[client] = st
	l.sweepLocked(now)
	return blocked
}

// Fail records a rejected token and starts a block once the window fills.
func (l *authRateLimiter) Fail(client string, now time.Time) {
	if l == nil || client == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.clients[client]
	if st.windowStart.IsZero() || now.Sub(st.windowStart) > l.window {
		st.failures = 0
		st.windowStart = now
	}
	st.failures++
	if st.failures >= l.maxFailures {
		st.blockedUntil = now.Add(l.blockFor)
		st.failures = 0
		st.windowStart = time.Time{}
	}
	st.lastSeen = now
	l.clients[client] = st
	l.sweepLocked(now)
}

// Succeed forgets the client's failures.
func (l *authRateLimiter) Succeed(client string) {
	if l == nil || client == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, client)
}

func (l *authRateLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.ops%authCleanupEvery != 0 {
		return
	}
	for client, st := range l.clients {
		if now.Sub(st.lastSeen) > l.staleAfter {
			delete(l.clients, client)
		}
	}
}

// clientKey is the remote host without the port.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
