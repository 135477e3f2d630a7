// Package movecache memoizes agent answers in Redis, keyed by position hash
// and time control.
package movecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

const (
	keyPrefix  = "ugi:move:"
	DefaultTTL = 24 * time.Hour
	opTimeout  = 500 * time.Millisecond
)

type entry struct {
	Move       string `json:"move"`
	Evaluation uint64 `json:"eval"`
}

// Agent wraps another behavior. Redis failures degrade to a plain search.
type Agent struct {
	inner engine.Behavior
	q     engine.Querier
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func New(inner engine.Behavior, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Agent {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{inner: inner, q: engine.QuerierFor(inner), rdb: rdb, ttl: ttl, log: logger}
}

func (a *Agent) Info() engine.EngineInfo { return a.inner.Info() }

func (a *Agent) IsReady() bool { return a.inner.IsReady() }

func (a *Agent) StopSearch() { a.inner.StopSearch() }

func (a *Agent) IsOver(g game.Game, b game.Board) bool        { return a.q.IsOver(g, b) }
func (a *Agent) Result(g game.Game, b game.Board) game.Result { return a.q.Result(g, b) }
func (a *Agent) Turn(b game.Board) int                        { return a.q.Turn(b) }

func (a *Agent) SelectMove(ctx context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	key, ok := cacheKey(req)
	if !ok {
		return a.inner.SelectMove(ctx, req)
	}

	if res, hit := a.lookup(ctx, key, req.Board); hit {
		return res, nil
	}

	res, err := a.inner.SelectMove(ctx, req)
	if err != nil || res.BestMove == nil {
		return res, err
	}
	a.store(ctx, key, entry{Move: req.Board.EncodeAction(res.BestMove), Evaluation: res.Evaluation})
	return res, nil
}

func (a *Agent) lookup(ctx context.Context, key string, b game.Board) (engine.MoveSelectionResults, bool) {
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, err := a.rdb.Get(cctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.MoveSelectionResults{}, false
	}
	if err != nil {
		a.log.Warn("move cache get", zap.String("key", key), zap.Error(err))
		return engine.MoveSelectionResults{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		a.log.Warn("move cache decode", zap.String("key", key), zap.Error(err))
		return engine.MoveSelectionResults{}, false
	}
	action, err := b.DecodeAction(e.Move, game.NormalMode)
	if err != nil {
		// Hash collision or a stale entry from another game.
		a.log.Warn("move cache entry not legal", zap.String("key", key), zap.String("move", e.Move))
		return engine.MoveSelectionResults{}, false
	}
	a.log.Debug("move cache hit", zap.String("key", key))
	return engine.MoveSelectionResults{BestMove: action, Evaluation: e.Evaluation}, true
}

func (a *Agent) store(ctx context.Context, key string, e entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()
	if err := a.rdb.Set(cctx, key, raw, a.ttl).Err(); err != nil {
		a.log.Warn("move cache set", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey is false for searches whose answer depends on when stop arrives.
func cacheKey(req engine.SearchRequest) (string, bool) {
	if len(req.Hashes) == 0 || req.TimeControl == nil {
		return "", false
	}
	if _, ok := req.TimeControl.(timecontrol.Infinite); ok {
		return "", false
	}
	hash := req.Hashes[len(req.Hashes)-1]
	return fmt.Sprintf("%s%s:%s", keyPrefix, strconv.FormatUint(hash, 16), strings.Join(req.TimeControl.Args(), "_")), true
}
