// Package random picks a uniformly random legal action.
package random

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/cheese-ugi/internal/engine"
)

const (
	DefaultName   = "Random"
	DefaultAuthor = "Corman"
)

type Agent struct {
	engine.DefaultQueries

	info engine.EngineInfo
	mu   sync.Mutex
	rng  *rand.Rand
}

type Option func(*Agent)

// WithSeed fixes the move sequence; zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(a *Agent) {
		if seed != 0 {
			a.rng = rand.New(rand.NewSource(seed))
		}
	}
}

func WithInfo(info engine.EngineInfo) Option {
	return func(a *Agent) {
		if info.Name != "" {
			a.info.Name = info.Name
		}
		if info.Author != "" {
			a.info.Author = info.Author
		}
	}
}

func New(opts ...Option) *Agent {
	a := &Agent{
		info: engine.EngineInfo{Name: DefaultName, Author: DefaultAuthor},
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Info() engine.EngineInfo { return a.info }

func (a *Agent) IsReady() bool { return true }

// SelectMove ignores the time control; the answer is immediate.
func (a *Agent) SelectMove(ctx context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	if err := ctx.Err(); err != nil {
		return engine.MoveSelectionResults{}, err
	}
	moves := req.Board.LegalMoves(req.Board.SideToMove())
	if len(moves) == 0 {
		return engine.MoveSelectionResults{}, engine.ErrNoLegalMove
	}
	a.mu.Lock()
	i := a.rng.Intn(len(moves))
	a.mu.Unlock()

	req.Info(engine.Infof(0, 0, req.Board.EncodeAction(moves[i])))
	return engine.MoveSelectionResults{BestMove: moves[i], Evaluation: 0}, nil
}

func (a *Agent) StopSearch() {}
