package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// withAuth requires a bearer token on every route except /health when the
// server has a token or token hash configured.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		client := clientKey(r)
		now := time.Now()
		if s.authLimiter.Blocked(client, now) {
			s.writeErrorReq(w, r, http.StatusTooManyRequests, resourceExhausted(fmt.Errorf("too many failed authentication attempts")))
			return
		}

		token, ok := bearerToken(r)
		if !ok || !s.auth.Verify(token) {
			s.authLimiter.Fail(client, now)
			w.Header().Set("WWW-Authenticate", `Bearer realm="docstore"`)
			s.writeErrorReq(w, r, http.StatusUnauthorized, apiError{
				status:  http.StatusUnauthorized,
				code:    "unauthorized",
				errCode: ErrCodeUnauthorized,
				err:     fmt.Errorf("missing or invalid bearer token"),
			})
			return
		}
		s.authLimiter.Succeed(client)
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
