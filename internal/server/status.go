package server

import (
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/pkg/ugidto"
)

// Status serves /healthz and /sessions over fasthttp.
type Status struct {
	reg   *Registry
	agent string
	log   *zap.Logger
}

func NewStatus(reg *Registry, agent string, logger *zap.Logger) *Status {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Status{reg: reg, agent: agent, log: logger}
}

func (s *Status) Handler(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, ugidto.Error{Code: "method_not_allowed", Message: "only GET is supported"})
		return
	}
	switch string(ctx.Path()) {
	case "/healthz":
		writeJSON(ctx, fasthttp.StatusOK, ugidto.Health{Status: "ok", Agent: s.agent, Sessions: s.reg.Len()})
	case "/sessions":
		writeJSON(ctx, fasthttp.StatusOK, ugidto.SessionList{Sessions: s.reg.List()})
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, ugidto.Error{Code: "not_found", Message: "unknown path"})
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, code int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

// ListenAndServe blocks until ctx is done.
func (s *Status) ListenAndServe(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{Handler: s.Handler, Name: "ugi-status"}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(addr) }()
	s.log.Info("status endpoint listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return srv.Shutdown()
	}
}
