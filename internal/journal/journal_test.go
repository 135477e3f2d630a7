package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-ugi/internal/domain"
	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/game/chessgame"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

type fixedAgent struct {
	engine.DefaultQueries
	err error
}

func (fixedAgent) Info() engine.EngineInfo { return engine.EngineInfo{Name: "Fixed"} }
func (fixedAgent) IsReady() bool           { return true }
func (fixedAgent) StopSearch()             {}

func (f fixedAgent) SelectMove(_ context.Context, req engine.SearchRequest) (engine.MoveSelectionResults, error) {
	if f.err != nil {
		return engine.MoveSelectionResults{}, f.err
	}
	a, err := req.Board.DecodeAction("e2e4", game.NormalMode)
	if err != nil {
		return engine.MoveSelectionResults{}, err
	}
	return engine.MoveSelectionResults{BestMove: a, Evaluation: 35}, nil
}

type failingRepo struct{ calls int }

func (f *failingRepo) SaveSearch(context.Context, *domain.SearchRecord) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingRepo) RecentSearches(context.Context, string, int) ([]*domain.SearchRecord, error) {
	return nil, nil
}

func TestRecorderSavesSearch(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(fixedAgent{}, repo, "s-1", nil)
	g := chessgame.New()
	b := g.Default()

	res, err := rec.SelectMove(context.Background(), engine.SearchRequest{
		Board:       b,
		TimeControl: timecontrol.Depth{Plies: 2},
		Hashes:      []uint64{g.Hash(b)},
	})
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if b.EncodeAction(res.BestMove) != "e2e4" {
		t.Fatalf("move = %s", b.EncodeAction(res.BestMove))
	}

	got, err := repo.RecentSearches(context.Background(), "s-1", 5)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d", len(got))
	}
	r := got[0]
	if r.Move != "e2e4" || r.Agent != "Fixed" || r.Ply != 0 || r.Evaluation != 35 || r.TimeControl != "depth 2" || r.FEN != chessgame.StartFEN {
		t.Fatalf("record = %+v", r)
	}
}

func TestRecorderSkipsFailedSearch(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(fixedAgent{err: engine.ErrNoLegalMove}, repo, "s-1", nil)
	b := chessgame.New().Default()
	if _, err := rec.SelectMove(context.Background(), engine.SearchRequest{Board: b}); !errors.Is(err, engine.ErrNoLegalMove) {
		t.Fatalf("err = %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("saved a failed search")
	}
}

func TestRecorderIgnoresSaveError(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(fixedAgent{}, repo, "s-1", nil)
	b := chessgame.New().Default()
	if _, err := rec.SelectMove(context.Background(), engine.SearchRequest{Board: b, TimeControl: timecontrol.Infinite{}}); err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("save calls = %d", repo.calls)
	}
}

func TestMemoryRepositoryOrderAndUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := &domain.SearchRecord{SessionID: "s", Ply: i, FEN: "f", Move: "a", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := repo.SaveSearch(ctx, r); err != nil {
			t.Fatalf("SaveSearch: %v", err)
		}
	}
	again := &domain.SearchRecord{SessionID: "s", Ply: 0, FEN: "f", Move: "b", CreatedAt: base}
	if err := repo.SaveSearch(ctx, again); err != nil {
		t.Fatalf("SaveSearch: %v", err)
	}
	if again.ID != 1 {
		t.Fatalf("upsert changed id to %d", again.ID)
	}

	got, _ := repo.RecentSearches(ctx, "s", 2)
	if len(got) != 2 || got[0].Ply != 2 || got[1].Ply != 1 {
		t.Fatalf("order = %+v", got)
	}
	all, _ := repo.RecentSearches(ctx, "s", 10)
	if len(all) != 3 || all[2].Move != "b" {
		t.Fatalf("all = %+v", all)
	}
	if other, _ := repo.RecentSearches(ctx, "other", 10); len(other) != 0 {
		t.Fatalf("other session = %+v", other)
	}
}
