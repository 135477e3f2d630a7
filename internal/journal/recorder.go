package journal

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/internal/domain"
	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
)

const saveTimeout = 2 * time.Second

// Recorder wraps a behavior and saves every answered search. A failed save is
// logged and never fails the search.
type Recorder struct {
	inner     engine.Behavior
	q         engine.Querier
	repo      Repository
	sessionID string
	log       *zap.Logger
	now       func() time.Time
}

func NewRecorder(inner engine.Behavior, repo Repository, sessionID string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		inner:     inner,
		q:         engine.QuerierFor(inner),
		repo:      repo,
		sessionID: sessionID,
		log:       logger,
		now:       time.Now,
	}
}

func (r *Recorder) Info() engine.EngineInfo { return r.inner.Info() }

func (r *Recorder) IsReady() bool { return r.inner.IsReady() }

func (r *Recorder) StopSearch() { r.inner.StopSearch() }

func (r *Recorder) IsOver(g game.Game, b game.Board) bool        { return r.q.IsOver(g, b) }
func (r *Recorder) Result(g game.Game, b game.Board) game.Result { return r.q.Result(g, b) }
func (r *Recorder) Turn(b game.Board) int                        { return r.q.Turn(b) }

func (r *Recorder) SelectMove(ctx context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	start := r.now()
	res, err := r.inner.SelectMove(ctx, req)
	if err != nil || res.BestMove == nil {
		return res, err
	}

	rec := &domain.SearchRecord{
		SessionID:  r.sessionID,
		Agent:      r.inner.Info().Name,
		Ply:        len(req.Hashes) - 1,
		FEN:        req.Board.FEN(),
		Move:       req.Board.EncodeAction(res.BestMove),
		Evaluation: res.Evaluation,
		Duration:   r.now().Sub(start),
		CreatedAt:  start,
	}
	if req.TimeControl != nil {
		rec.TimeControl = strings.Join(req.TimeControl.Args(), " ")
	}
	if rec.Ply < 0 {
		rec.Ply = 0
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if serr := r.repo.SaveSearch(sctx, rec); serr != nil {
		r.log.Warn("journal save", zap.String("fen", rec.FEN), zap.Error(serr))
	}
	return res, nil
}
