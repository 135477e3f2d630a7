// Package blunder adapts the blunder alpha-beta searcher to the engine
// contract. It plays standard chess only.
package blunder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	bengine "github.com/razzie/blunder/engine"
	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

const (
	DefaultName   = "Blunder"
	DefaultAuthor = "Christian Dean"

	// maxPlies bounds depth requests and untimed searches.
	maxPlies = 50

	// stopPoll is how often a pending stop is pushed back into the timer.
	stopPoll = 5 * time.Millisecond
)

var initOnce sync.Once

func initTables() {
	initOnce.Do(func() {
		bengine.InitBitboards()
		bengine.InitTables()
		bengine.InitZobrist()
		bengine.InitEvalBitboards()
		bengine.InitSearchTables()
	})
}

// Agent owns one blunder search and its transposition table. Searches on one
// agent are serialized.
type Agent struct {
	engine.DefaultQueries

	info engine.EngineInfo
	log  *zap.Logger

	mu     sync.Mutex
	search bengine.Search

	// stopped is set by StopSearch and cleared when a search returns, so a
	// stop that lands before Search starts its clock still ends that search.
	// Search resets Timer.Stop on start, so the flag is reasserted until the
	// search returns.
	stopMu  sync.Mutex
	stopped bool
}

func New(info engine.EngineInfo, logger *zap.Logger) *Agent {
	initTables()
	if info.Name == "" {
		info.Name = DefaultName
	}
	if info.Author == "" {
		info.Author = DefaultAuthor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{info: info, log: logger}
	a.search.TT.Resize(bengine.DefaultTTSize, bengine.SearchEntrySize)
	return a
}

func (a *Agent) Info() engine.EngineInfo { return a.info }

func (a *Agent) IsReady() bool { return true }

func (a *Agent) SelectMove(ctx context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	if len(req.Board.LegalMoves(req.Board.SideToMove())) == 0 {
		return engine.MoveSelectionResults{}, engine.ErrNoLegalMove
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.setup(req.Board)
	l := limitsFor(req.TimeControl, req.Board.SideToMove())
	a.search.Timer.Setup(l.timeLeft, l.increment, l.moveTime, l.movesToGo, l.maxDepth, l.maxNodes)

	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		a.watch(ctx, done)
	}()
	best := a.search.Search()
	close(done)
	<-watched
	a.setStopped(false)

	if best == bengine.NullMove {
		// Stopped before the first iteration finished.
		a.log.Debug("blunder stopped without a move")
		return engine.MoveSelectionResults{BestMove: req.Board.LegalMoves(req.Board.SideToMove())[0]}, nil
	}
	action, err := req.Board.DecodeAction(best.String(), game.NormalMode)
	if err != nil {
		return engine.MoveSelectionResults{}, fmt.Errorf("blunder returned %q: %w", best.String(), err)
	}

	res := engine.MoveSelectionResults{BestMove: action}
	if depth, score, ok := a.rootScore(); ok {
		if score > 0 {
			res.Evaluation = uint64(score)
		}
		req.Info(engine.Infof(uint32(depth), int(score), best.String()))
	}
	a.log.Debug("blunder move", zap.String("move", best.String()), zap.Uint64("eval", res.Evaluation))
	return res, nil
}

// StopSearch asks the running search, or the one about to start, to return as
// soon as possible. blunder polls Timer.Stop between nodes.
func (a *Agent) StopSearch() {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	a.stopped = true
	a.search.Timer.Stop = true
}

func (a *Agent) setStopped(v bool) {
	a.stopMu.Lock()
	a.stopped = v
	a.stopMu.Unlock()
}

// watch turns ctx cancellation into a stop and keeps a pending stop applied
// until done is closed.
func (a *Agent) watch(ctx context.Context, done <-chan struct{}) {
	tick := time.NewTicker(stopPoll)
	defer tick.Stop()
	ctxDone := ctx.Done()
	for {
		select {
		case <-done:
			return
		case <-ctxDone:
			ctxDone = nil
			a.StopSearch()
		case <-tick.C:
			a.stopMu.Lock()
			if a.stopped {
				a.search.Timer.Stop = true
			}
			a.stopMu.Unlock()
		}
	}
}

// rootScore reads the score of the last completed iteration from the root
// transposition entry, from the side to move's point of view.
func (a *Agent) rootScore() (uint8, int16, bool) {
	hash := a.search.Pos.Hash
	entry := a.search.TT.Probe(hash)
	if entry == nil || entry.Hash != hash || entry.Depth == 0 {
		return 0, 0, false
	}
	return entry.Depth, entry.Score, true
}

// setup loads the current position and replays the earlier positions into
// blunder's repetition history.
func (a *Agent) setup(b game.Board) {
	var earlier []uint64
	if h, ok := b.(game.Historian); ok {
		fens := h.History()
		if len(fens) > 1 {
			for _, fen := range fens[:len(fens)-1] {
				a.search.Setup(fen)
				earlier = append(earlier, a.search.Pos.Hash)
			}
		}
	}
	a.search.Setup(b.FEN())
	for _, hash := range earlier {
		a.search.AddHistory(hash)
	}
}

type limits struct {
	timeLeft  int64
	increment int64
	moveTime  int64
	movesToGo int16
	maxDepth  uint8
	maxNodes  uint64
}

func limitsFor(tc timecontrol.TimeControl, side int) limits {
	l := limits{
		timeLeft:  bengine.InfiniteTime,
		increment: bengine.NoValue,
		moveTime:  bengine.NoValue,
		movesToGo: int16(bengine.NoValue),
		maxDepth:  maxPlies,
		maxNodes:  uint64(math.MaxUint64),
	}
	switch v := tc.(type) {
	case timecontrol.Timed:
		if p, ok := v.Player(side); ok {
			l.timeLeft = clampInt64(p.TimeMS)
			l.increment = clampInt64(p.IncMS)
		}
	case timecontrol.MoveTime:
		l.moveTime = clampInt64(v.MS)
	case timecontrol.Depth:
		if v.Plies < maxPlies {
			l.maxDepth = uint8(v.Plies)
		}
		if l.maxDepth == 0 {
			l.maxDepth = 1
		}
	case timecontrol.Nodes:
		l.maxNodes = v.Count
	}
	return l
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
