package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/boozedog/devserve/internal/config"
	"github.com/boozedog/devserve/internal/web/middleware"
)

// Options carries the values a Server needs besides its config.
type Options struct {
	// Root is the absolute directory files are served from.
	Root string
	// Out receives the startup banner and shutdown line.
	Out io.Writer
	// ConfigPath, when set and cfg.Watch.Enabled, is watched for changes.
	ConfigPath string
	// Level, when set, is updated when the config file is reloaded.
	Level *slog.LevelVar
	// Logger receives access log lines. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves files from a directory with CORS headers on every response.
type Server struct {
	cfg  *config.Config
	opts Options
	cors *middleware.CORSHeaders
	srv  *http.Server
}

// NewServer creates a new static file server.
func NewServer(cfg *config.Config, opts Options) *Server {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		cfg:  cfg,
		opts: opts,
		cors: middleware.NewCORSHeaders(corsPolicy(cfg)),
	}
}

// Handler returns the request handler: the static file server wrapped in
// the middleware chain. ctx bounds background work started by middleware.
func (s *Server) Handler(ctx context.Context) http.Handler {
	files := newFileHandler(s.opts.Root)

	var mw []func(http.Handler) http.Handler
	if s.cfg.Log.Access {
		mw = append(mw, middleware.AccessLog(s.opts.Logger))
	}
	mw = append(mw, middleware.CORS(s.cors))
	if s.cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimitConfig(s.cfg.RateLimit.Rate, s.cfg.RateLimit.Burst)
		rl.Logger = s.opts.Logger
		mw = append(mw, middleware.RateLimit(ctx, rl))
	}
	mw = append(mw, middleware.AllowMethods(http.MethodGet, http.MethodHead, http.MethodPost))

	return middleware.Chain(files, mw...)
}

// ListenAndServe binds the configured address and serves until the context
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := listen(s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context is cancelled, then
// closes the listener and every open connection and returns nil. Requests
// still in flight are dropped. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.srv = &http.Server{
		Handler:  s.Handler(ctx),
		ErrorLog: slog.NewLogLogger(s.opts.Logger.Handler(), slog.LevelDebug),
	}

	if s.cfg.Watch.Enabled && s.opts.ConfigPath != "" {
		w, err := config.NewWatcher(s.opts.ConfigPath, s.Reload)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("watch config: %w", err)
		}
		defer func() { _ = w.Close() }()
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		s.opts.Logger.Debug("closing server")
		_ = s.srv.Close()
	}()

	s.printBanner(ln.Addr())
	s.opts.Logger.Debug("listening", "addr", ln.Addr().String(), "root", s.opts.Root)

	err := s.srv.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-closed

	fmt.Fprintln(s.opts.Out)
	fmt.Fprintln(s.opts.Out, "Server stopped")
	return nil
}

// Reload applies the reloadable parts of cfg to a running server: the CORS
// header values and the log level. Listener, root and middleware selection
// need a restart.
func (s *Server) Reload(cfg *config.Config) {
	s.cors.Store(corsPolicy(cfg))
	if s.opts.Level != nil {
		s.opts.Level.Set(cfg.SlogLevel())
	}
}

func (s *Server) printBanner(addr net.Addr) {
	port := s.cfg.Server.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	fmt.Fprintf(s.opts.Out, "Server started at http://localhost:%d\n", port)
	fmt.Fprintf(s.opts.Out, "Serving files from: %s\n", s.opts.Root)
	fmt.Fprintf(s.opts.Out, "Open http://localhost:%d in your browser\n", port)
	fmt.Fprintf(s.opts.Out, "Press Ctrl+C to stop the server\n\n")
}

func corsPolicy(cfg *config.Config) middleware.CORSPolicy {
	return middleware.CORSPolicy{
		AllowOrigin:  cfg.CORS.AllowOrigin,
		AllowMethods: cfg.CORS.AllowMethods,
		AllowHeaders: cfg.CORS.AllowHeaders,
	}
}
