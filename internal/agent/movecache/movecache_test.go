package movecache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game/chessgame"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

type countingAgent struct {
	engine.DefaultQueries
	mu    sync.Mutex
	calls int
}

func (c *countingAgent) Info() engine.EngineInfo { return engine.EngineInfo{Name: "Count"} }
func (c *countingAgent) IsReady() bool           { return true }
func (c *countingAgent) StopSearch()             {}

func (c *countingAgent) SelectMove(_ context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	moves := req.Board.LegalMoves(req.Board.SideToMove())
	return engine.MoveSelectionResults{BestMove: moves[len(moves)-1], Evaluation: 12}, nil
}

func newTestCache(t *testing.T) (*Agent, *countingAgent, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	inner := &countingAgent{}
	return New(inner, rdb, time.Minute, nil), inner, mr
}

func request(tc timecontrol.TimeControl) engine.SearchRequest {
	g := chessgame.New()
	b := g.Default()
	return engine.SearchRequest{Board: b, TimeControl: tc, Hashes: []uint64{g.Hash(b)}}
}

func TestSecondSearchHitsCache(t *testing.T) {
	a, inner, mr := newTestCache(t)
	ctx := context.Background()

	req := request(timecontrol.Depth{Plies: 4})
	first, err := a.SelectMove(ctx, req)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	want := req.Board.EncodeAction(first.BestMove)

	req = request(timecontrol.Depth{Plies: 4})
	second, err := a.SelectMove(ctx, req)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d", inner.calls)
	}
	if got := req.Board.EncodeAction(second.BestMove); got != want || second.Evaluation != 12 {
		t.Fatalf("cached move = %s eval %d, want %s eval 12", got, second.Evaluation, want)
	}

	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], keyPrefix) || !strings.HasSuffix(keys[0], ":depth_4") {
		t.Fatalf("keys = %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestDifferentControlMisses(t *testing.T) {
	a, inner, _ := newTestCache(t)
	ctx := context.Background()
	if _, err := a.SelectMove(ctx, request(timecontrol.Depth{Plies: 4})); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if _, err := a.SelectMove(ctx, request(timecontrol.Nodes{Count: 100})); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d", inner.calls)
	}
}

func TestInfiniteBypassesCache(t *testing.T) {
	a, inner, mr := newTestCache(t)
	for i := 0; i < 2; i++ {
		if _, err := a.SelectMove(context.Background(), request(timecontrol.Infinite{})); err != nil {
			t.Fatalf("SelectMove: %v", err)
		}
	}
	if inner.calls != 2 || len(mr.Keys()) != 0 {
		t.Fatalf("calls=%d keys=%v", inner.calls, mr.Keys())
	}
}

func TestIllegalCachedMoveFallsBack(t *testing.T) {
	a, inner, mr := newTestCache(t)
	req := request(timecontrol.Depth{Plies: 2})
	key, _ := cacheKey(req)
	if err := mr.Set(key, `{"move":"e2e5","eval":0}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := a.SelectMove(context.Background(), req); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d", inner.calls)
	}
}

func TestRedisDownDegrades(t *testing.T) {
	inner := &countingAgent{}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	a := New(inner, rdb, time.Minute, nil)
	if _, err := a.SelectMove(context.Background(), request(timecontrol.Depth{Plies: 2})); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d", inner.calls)
	}
}
