package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"docstore/internal/auth"
	"docstore/internal/content"
	"docstore/internal/converter"
	"docstore/internal/rendition"
	"docstore/internal/store"
)

const (
	allowRemoteEnvKey      = "DOCSTORE_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 5 * time.Minute
	writeTimeout           = 5 * time.Minute
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 15 * time.Second
	uploadConcurrencyLimit = 4
	verifyConcurrencyLimit = 1

	defaultWaitTimeout        = 30 * time.Second
	defaultMaxUploadBytes     = 100 << 20 // 100 MiB
	defaultMultipartMaxMemory = 8 << 20   // 8 MiB
)

// Options configure a Server beyond its collaborators.
type Options struct {
	DBPath   string
	BlobRoot string
	// Auth guards every route but /health. Nil disables authentication.
	Auth *auth.Verifier
	// WaitTimeout is how long a rendition request blocks before answering
	// 202 with a job id, unless the request overrides it.
	WaitTimeout        time.Duration
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	AllowedExtensions  []string
	Converter          converter.Converter
	ConverterName      string
}

// Server wraps HTTP handlers for the docstore API.
type Server struct {
	addr          string
	store         *store.Store
	documents     *DocumentService
	content       *content.Service
	engine        *rendition.Engine
	opts          Options
	logger        *slog.Logger
	auth          *auth.Verifier
	authLimiter   *authRateLimiter
	uploadLimiter chan struct{}
	verifyLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, st *store.Store, contentSvc *content.Service, engine *rendition.Engine, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = defaultMultipartMaxMemory
	}

	return &Server{
		addr:          addr,
		store:         st,
		documents:     NewDocumentService(st, contentSvc),
		content:       contentSvc,
		engine:        engine,
		opts:          opts,
		logger:        logger,
		auth:          opts.Auth,
		authLimiter:   newAuthRateLimiter(authMaxFailures, authWindow, authBlockFor),
		uploadLimiter: make(chan struct{}, uploadConcurrencyLimit),
		verifyLimiter: make(chan struct{}, verifyConcurrencyLimit),
	}
}

// Handler returns the routed handler with auth and request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "auth", s.auth.Enabled())
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := resourceExhausted(fmt.Errorf("too many concurrent %s requests", name))
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
