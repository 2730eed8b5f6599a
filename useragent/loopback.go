// Package useragent presents authorization requests in the system browser and
// captures the redirect on a loopback HTTP listener.
package useragent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-kinde-auth/auth"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 5 * time.Minute

	successPage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head>
<body><p>Authentication complete. You can close this window and return to the application.</p></body></html>`
)

var ErrNotLoopback = errors.New("redirect uri is not a loopback http address")

// Opener opens rawURL for the user, usually in the default browser.
type Opener func(rawURL string) error

// Loopback is an auth.UserAgent for command line and desktop applications
// whose redirect URI points at 127.0.0.1, ::1 or localhost.
type Loopback struct {
	opener  Opener
	logger  zerolog.Logger
	timeout time.Duration
}

var _ auth.UserAgent = (*Loopback)(nil)

type Option func(*Loopback)

// WithOpener replaces the browser launcher.
func WithOpener(opener Opener) Option {
	return func(l *Loopback) {
		l.opener = opener
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loopback) {
		l.logger = logger
	}
}

// WithTimeout bounds how long Present waits for the redirect. A flow that
// times out is reported as cancelled by the user.
func WithTimeout(timeout time.Duration) Option {
	return func(l *Loopback) {
		l.timeout = timeout
	}
}

func NewLoopback(options ...Option) *Loopback {
	l := &Loopback{
		opener:  browser.OpenURL,
		logger:  log.Logger,
		timeout: DefaultTimeout,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Present listens on the redirect host, opens the authorization URL and
// blocks until the authorization server redirects back, ctx is done or the
// timeout elapses.
func (l *Loopback) Present(ctx context.Context, req auth.AuthorizationRequest) (*url.URL, error) {
	if req.URL == nil || req.RedirectURL == nil {
		return nil, errors.New("[Loopback Present] authorization and redirect URLs are required")
	}
	if !isLoopback(req.RedirectURL) {
		return nil, fmt.Errorf("%w: %s", ErrNotLoopback, req.RedirectURL.Redacted())
	}
	if req.Ephemeral {
		l.logger.Debug().Msg("Private browser sessions are not supported by the system browser, continuing with a shared session")
	}

	listener, err := net.Listen("tcp", listenAddress(req.RedirectURL))
	if err != nil {
		return nil, fmt.Errorf("[Loopback Present] failed to listen on %s: %w", req.RedirectURL.Host, err)
	}

	callbacks := make(chan *url.URL, 1)
	server := &http.Server{
		Handler:           l.router(req.RedirectURL, callbacks),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error().Err(err).Msg("Loopback callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	l.logger.Info().Str("url", req.URL.String()).Msg("Opening the browser to continue authentication")
	if err := l.opener(req.URL.String()); err != nil {
		return nil, fmt.Errorf("[Loopback Present] failed to open the browser: %w", err)
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case callback := <-callbacks:
		return callback, nil
	case <-ctx.Done():
		return nil, autherrors.NewUserCancellation(ctx.Err())
	case <-timer.C:
		return nil, autherrors.NewUserCancellation(context.DeadlineExceeded)
	}
}

func (l *Loopback) router(redirect *url.URL, callbacks chan<- *url.URL) http.Handler {
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		callback := *redirect
		callback.RawQuery = req.URL.RawQuery
		select {
		case callbacks <- &callback:
		default:
			l.logger.Warn().Msg("Ignoring repeated authorization callback")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(successPage))
	})
	return r
}

func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func listenAddress(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
