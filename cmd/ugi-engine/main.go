package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appcfg "github.com/park285/cheese-ugi/internal/config"
	"github.com/park285/cheese-ugi/internal/builder"
	"github.com/park285/cheese-ugi/internal/obslog"
	"github.com/park285/cheese-ugi/internal/server"
	"github.com/park285/cheese-ugi/internal/ugi"
)

func main() {
	os.Exit(run())
}

// protocolStdout returns the process stdout for the session and points
// os.Stdout at stderr, so text printed by search libraries never reaches the
// controller.
func protocolStdout() *os.File {
	out := os.Stdout
	os.Stdout = os.Stderr
	return out
}

func run() int {
	// Before any agent is built: blunder prints while initializing.
	out := protocolStdout()
	log.SetOutput(os.Stderr)

	cfg, err := appcfg.Load()
	if err != nil {
		log.Printf("config error: %v", err)
		return 2
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
		return 2
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init failed", zap.Error(err))
		log.Printf("init error: %v", err)
		return 2
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close deps", zap.Error(err))
		}
	}()

	if cfg.ServerMode() {
		return serve(ctx, cfg, deps, logger)
	}

	id := uuid.NewString()
	sess := ugi.NewSession(deps.Game, deps.NewAgent(id), os.Stdin, out,
		ugi.WithID(id),
		ugi.WithCatalog(deps.Messages),
		ugi.WithLenient(cfg.Lenient),
	)
	err = sess.Run(ctx)
	var perr *ugi.ProtocolError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.As(err, &perr):
		return 1
	default:
		logger.Error("session failed", zap.Error(err))
		return 1
	}
}

func serve(ctx context.Context, cfg *appcfg.AppConfig, deps *builder.Deps, logger *zap.Logger) int {
	srv := server.New(server.Config{
		Game:     deps.Game,
		Messages: deps.Messages,
		NewAgent: deps.NewAgent,
		Lenient:  cfg.Lenient,
	}, server.NewRegistry(), logger)

	errc := make(chan error, 2)
	go func() { errc <- srv.ListenAndServe(ctx, cfg.ListenAddr) }()
	if cfg.StatusAddr != "" {
		st := server.NewStatus(srv.Registry(), cfg.Agent, logger)
		go func() { errc <- st.ListenAndServe(ctx, cfg.StatusAddr) }()
	}

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return 0
}
