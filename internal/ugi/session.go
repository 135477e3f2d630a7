// Package ugi runs the line protocol spoken by UGI, UCI and UAI controllers.
package ugi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/msgcat"
	"github.com/park285/cheese-ugi/internal/obslog"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

const maxLineBytes = 1 << 20

// Dialects lists the accepted handshake tokens.
var Dialects = []string{"ugi", "uci", "uai"}

func isDialect(s string) bool {
	for _, d := range Dialects {
		if s == d {
			return true
		}
	}
	return false
}

// Session is one controller conversation. It owns the current board and hash
// trail; the behavior only ever borrows them for a single call.
type Session struct {
	id       string
	game     game.Game
	behavior engine.Behavior
	queries  engine.Querier
	in       io.Reader
	resp     *engine.Responder
	msgs     *msgcat.Catalog
	log      *zap.Logger
	lenient  bool
	onHello  func(dialect string)

	dialect string
	board   game.Board
	hashes  []uint64

	lines   <-chan string
	readErr <-chan error
	pending []string
	quit    bool
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithCatalog(c *msgcat.Catalog) Option {
	return func(s *Session) { s.msgs = c }
}

// WithLenient makes go/query without a board print the diagnostic and keep
// the session alive instead of ending it.
func WithLenient(lenient bool) Option {
	return func(s *Session) { s.lenient = lenient }
}

// WithHandshakeHook is called once with the dialect after a successful
// handshake.
func WithHandshakeHook(fn func(dialect string)) Option {
	return func(s *Session) { s.onHello = fn }
}

func NewSession(g game.Game, b engine.Behavior, in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		game:     g,
		behavior: b,
		queries:  engine.QuerierFor(b),
		in:       in,
		resp:     engine.NewResponder(out),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.msgs == nil {
		s.msgs = msgcat.Default()
	}
	if s.log == nil {
		s.log = obslog.ForSession(s.id)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Dialect() string { return s.dialect }

// Board returns the current board, nil before the first position command.
func (s *Session) Board() game.Board { return s.board }

// Hashes returns a copy of the hash trail.
func (s *Session) Hashes() []uint64 { return append([]uint64(nil), s.hashes...) }

// Run performs the handshake and serves commands until end of input, quit,
// cancellation or a fatal protocol error. End of input and quit return nil.
func (s *Session) Run(ctx context.Context) error {
	sc := bufio.NewScanner(s.in)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read handshake: %w", err)
		}
		return nil
	}
	proto := strings.TrimSpace(sc.Text())
	if !isDialect(proto) {
		return s.fatal(ErrUnknownProtocol, "protocol.unknown", nil, nil)
	}
	s.dialect = proto
	s.log = s.log.With(zap.String("dialect", proto))
	if err := s.resp.Handshake(proto, s.behavior.Info()); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	if s.onHello != nil {
		s.onHello(proto)
	}
	s.log.Info("session started")

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go readLines(sc, lines, readErr, done)
	s.lines, s.readErr = lines, readErr

	for !s.quit {
		line, ok, err := s.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("input closed")
			return nil
		}
		if err := s.dispatch(ctx, line); err != nil {
			return err
		}
	}
	s.log.Info("session quit")
	return nil
}

func readLines(sc *bufio.Scanner, out chan<- string, errc chan<- error, done <-chan struct{}) {
	defer close(out)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-done:
			return
		}
	}
	errc <- sc.Err()
}

// next returns queued lines first, then reads from input. ok is false at end
// of input.
func (s *Session) next(ctx context.Context) (string, bool, error) {
	if len(s.pending) > 0 {
		line := s.pending[0]
		s.pending = s.pending[1:]
		return line, true, nil
	}
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok := <-s.lines:
		if ok {
			return line, true, nil
		}
		select {
		case err := <-s.readErr:
			if err != nil {
				return "", false, fmt.Errorf("read input: %w", err)
			}
		default:
		}
		return "", false, nil
	}
}

func firstField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (s *Session) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "isready":
		return s.handleIsReady()
	case "position":
		return s.handlePosition(line)
	case "go":
		return s.handleGo(ctx, fields[1:])
	case "query":
		return s.handleQuery(fields[1:])
	case "stop":
		s.log.Debug("stop with no search running")
	case "quit":
		s.quit = true
	default:
		s.log.Debug("ignoring command", zap.String("line", line))
	}
	return nil
}

func (s *Session) handleIsReady() error {
	if !s.behavior.IsReady() {
		return nil
	}
	return s.resp.ReadyOK()
}

func (s *Session) handlePosition(line string) error {
	args := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "position"))
	p, ok := parsePositionArgs(args)
	if !ok {
		return s.fatal(ErrBadPosition, "position.subcommand", map[string]any{"Args": args}, nil)
	}

	board, hashes, err := BuildPosition(s.game, p.start, p.moves)
	if err != nil {
		var me *MoveError
		var fe *FENError
		switch {
		case errors.As(err, &me):
			return s.fatal(ErrIllegalMove, "position.move", map[string]any{"Action": me.Action, "FEN": me.FEN}, err)
		case errors.As(err, &fe):
			return s.fatal(ErrBadPosition, "position.fen", map[string]any{"FEN": fe.FEN, "Err": fe.Err}, err)
		default:
			return s.fatal(ErrBadPosition, "position.fen", map[string]any{"FEN": p.start.FEN, "Err": err}, err)
		}
	}
	s.board, s.hashes = board, hashes
	s.log.Debug("position set", zap.String("fen", board.FEN()), zap.Int("plies", len(p.moves)))
	return nil
}

func (s *Session) handleGo(ctx context.Context, args []string) error {
	tc, err := timecontrol.Parse(args)
	if err != nil {
		return s.fatal(ErrBadGoParam, "go.param", map[string]any{"Err": err}, err)
	}
	if s.board == nil {
		return s.missingBoard("go.no_board")
	}

	res, err := s.search(ctx, tc)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.fatal(ErrSearchFailed, "go.failed", map[string]any{"Err": err}, err)
	}
	if res.BestMove == nil {
		return s.fatal(ErrSearchFailed, "go.failed", map[string]any{"Err": engine.ErrNoLegalMove}, engine.ErrNoLegalMove)
	}
	return s.resp.BestMove(s.board, res.BestMove)
}

type searchResult struct {
	res engine.MoveSelectionResults
	err error
}

// search runs SelectMove on its own goroutine and keeps reading input so a
// stop can reach the agent. A stop also cancels the search context, which
// covers a stop that arrives before the agent has started. Other commands are
// queued until the search ends; isready is answered immediately.
func (s *Session) search(ctx context.Context, tc timecontrol.TimeControl) (engine.MoveSelectionResults, error) {
	req := engine.SearchRequest{
		Board:       s.board,
		TimeControl: tc,
		Hashes:      s.Hashes(),
		Report: func(info engine.Info) {
			if err := s.resp.Info(info); err != nil {
				s.log.Warn("write info", zap.Error(err))
			}
		},
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	done := make(chan searchResult, 1)
	go func() {
		res, err := s.behavior.SelectMove(searchCtx, req)
		done <- searchResult{res: res, err: err}
	}()

	lines := s.lines
	ctxDone := ctx.Done()
	for {
		select {
		case r := <-done:
			fields := []zap.Field{
				zap.String("tc", tc.String()),
				zap.Duration("took", time.Since(start)),
			}
			if r.err != nil {
				s.log.Warn("search failed", append(fields, zap.Error(r.err))...)
			} else if r.res.BestMove != nil {
				s.log.Info("search done", append(fields, zap.String("move", s.board.EncodeAction(r.res.BestMove)))...)
			}
			return r.res, r.err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			switch firstField(line) {
			case "stop":
				s.behavior.StopSearch()
				cancel()
			case "quit":
				s.behavior.StopSearch()
				cancel()
				s.quit = true
			case "isready":
				if err := s.handleIsReady(); err != nil {
					s.log.Warn("write readyok", zap.Error(err))
				}
			default:
				s.pending = append(s.pending, line)
			}
		case <-ctxDone:
			ctxDone = nil
			s.behavior.StopSearch()
			cancel()
		}
	}
}

func (s *Session) handleQuery(args []string) error {
	if s.board == nil {
		return s.missingBoard("query.no_board")
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "gameover":
		return s.resp.ResponseBool(s.queries.IsOver(s.game, s.board))
	case "p1turn":
		return s.resp.ResponseBool(s.queries.Turn(s.board) == 0)
	case "result":
		return s.resp.Response(s.queries.Result(s.game, s.board).Token())
	default:
		s.log.Debug("ignoring query", zap.String("query", args[0]))
	}
	return nil
}

func (s *Session) missingBoard(key string) error {
	if !s.lenient {
		return s.fatal(ErrNoBoard, key, nil, nil)
	}
	msg := s.msgs.Text(key, nil, ErrNoBoard.Error())
	s.log.Warn("command without board", zap.String("message", msg))
	return s.resp.Diagnostic(msg)
}

// fatal writes the diagnostic line for kind and returns the error that ends
// the session.
func (s *Session) fatal(kind error, key string, data map[string]any, cause error) error {
	msg := s.msgs.Text(key, data, kind.Error())
	if err := s.resp.Diagnostic(msg); err != nil {
		s.log.Warn("write diagnostic", zap.Error(err))
	}
	perr := &ProtocolError{Kind: kind, Message: msg, Err: cause}
	s.log.Error("protocol error", zap.Error(perr))
	return perr
}
