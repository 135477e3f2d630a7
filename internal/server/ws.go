// Package server serves UGI sessions over websocket and reports them on a
// status endpoint.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/msgcat"
	"github.com/park285/cheese-ugi/internal/obslog"
	"github.com/park285/cheese-ugi/internal/ugi"
)

const Path = "/ugi"

type Config struct {
	Game     game.Game
	Messages *msgcat.Catalog
	NewAgent func(sessionID string) engine.Behavior
	Lenient  bool
}

// Server runs one ugi.Session per websocket connection. Every websocket
// message is treated as a chunk of the text stream, so lines may span
// messages.
type Server struct {
	cfg Config
	reg *Registry
	log *zap.Logger
}

func New(cfg Config, reg *Registry, logger *zap.Logger) *Server {
	if reg == nil {
		reg = NewRegistry()
	}
	if logger == nil {
		logger = obslog.L()
	}
	return &Server{cfg: cfg, reg: reg, log: logger}
}

func (s *Server) Registry() *Registry { return s.reg }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleUGI)
	return mux
}

func (s *Server) handleUGI(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}
	conn.SetReadLimit(1 << 20)

	id := s.reg.Add(r.RemoteAddr)
	defer s.reg.Remove(id)

	ctx := r.Context()
	stream := websocket.NetConn(ctx, conn, websocket.MessageText)
	defer stream.Close()

	err = s.Serve(ctx, id, stream)
	var perr *ugi.ProtocolError
	switch {
	case err == nil:
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	case errors.As(err, &perr):
		_ = conn.Close(websocket.StatusPolicyViolation, truncateReason(perr.Message))
	default:
		_ = conn.Close(websocket.StatusInternalError, "session error")
	}
}

// Serve runs a registered session on an already open stream.
func (s *Server) Serve(ctx context.Context, id string, stream net.Conn) error {
	log := s.log.With(zap.String("session", id))
	sess := ugi.NewSession(s.cfg.Game, s.cfg.NewAgent(id), stream, stream,
		ugi.WithID(id),
		ugi.WithLogger(log),
		ugi.WithCatalog(s.cfg.Messages),
		ugi.WithLenient(s.cfg.Lenient),
		ugi.WithHandshakeHook(func(dialect string) { s.reg.SetDialect(id, dialect) }),
	)
	start := time.Now()
	err := sess.Run(ctx)
	log.Info("session closed", zap.Duration("uptime", time.Since(start)), zap.Error(err))
	return err
}

// ListenAndServe blocks until ctx is done, then shuts down gracefully. Open
// sessions see ctx cancelled through their request context.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("ugi websocket listening", zap.String("addr", addr), zap.String("path", Path))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shCtx)
}

// Close reasons are limited to 123 bytes by the websocket protocol.
func truncateReason(s string) string {
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
