package chessgame

import (
	"errors"
	"testing"

	"github.com/park285/cheese-ugi/internal/game"
)

func play(t *testing.T, b game.Board, moves ...string) {
	t.Helper()
	for _, m := range moves {
		a, err := b.DecodeAction(m, game.NormalMode)
		if err != nil {
			t.Fatalf("DecodeAction(%q): %v", m, err)
		}
		if err := b.MakeMove(a); err != nil {
			t.Fatalf("MakeMove(%q): %v", m, err)
		}
	}
}

func TestDefaultIsStartPosition(t *testing.T) {
	b := New().Default()
	if got := b.FEN(); got != StartFEN {
		t.Fatalf("FEN() = %q, want %q", got, StartFEN)
	}
	if b.SideToMove() != 0 {
		t.Fatalf("expected first player to move")
	}
	if n := len(b.LegalMoves(0)); n != 20 {
		t.Fatalf("expected 20 legal moves, got %d", n)
	}
	if n := len(b.LegalMoves(1)); n != 0 {
		t.Fatalf("expected no moves for the side not to move, got %d", n)
	}
}

func TestDecodeRejectsIllegalMove(t *testing.T) {
	b := New().Default()
	for _, tok := range []string{"e2e5", "e7e5", "zz", ""} {
		if _, err := b.DecodeAction(tok, game.NormalMode); err == nil {
			t.Fatalf("expected %q to be rejected", tok)
		}
	}
	_, err := b.DecodeAction("e2e5", game.NormalMode)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New().Default()
	play(t, b, "e2e4", "d7d5")
	for _, a := range b.LegalMoves(b.SideToMove()) {
		tok := b.EncodeAction(a)
		back, err := b.DecodeAction(tok, game.NormalMode)
		if err != nil {
			t.Fatalf("re-decode %q: %v", tok, err)
		}
		if again := b.EncodeAction(back); again != tok {
			t.Fatalf("round trip %q -> %q", tok, again)
		}
	}
	a, err := b.DecodeAction("E4D5", game.NormalMode)
	if err != nil {
		t.Fatalf("uppercase token: %v", err)
	}
	if tok := b.EncodeAction(a); tok != "e4d5" {
		t.Fatalf("normalised token = %q, want e4d5", tok)
	}
}

func TestCloneDoesNotShareState(t *testing.T) {
	b := New().Default()
	c := b.Clone()
	play(t, c, "g1f3")
	if b.FEN() != StartFEN {
		t.Fatalf("original board mutated through clone: %s", b.FEN())
	}
	if c.SideToMove() != 1 {
		t.Fatalf("clone should have black to move")
	}
}

func TestHashTransposition(t *testing.T) {
	g := New()
	b := g.Default()
	start := g.Hash(b)
	play(t, b, "g1f3")
	afterOne := g.Hash(b)
	if afterOne == start {
		t.Fatalf("hash did not change after a move")
	}
	play(t, b, "g8f6", "f3g1", "f6g8")
	if got := g.Hash(b); got != start {
		t.Fatalf("knight shuffle hash = %x, want %x", got, start)
	}
}

func TestHashMatchesFEN(t *testing.T) {
	g := New()
	b := g.Default()
	play(t, b, "e2e4", "c7c5", "g1f3")
	fromFEN, err := g.FromFEN(b.FEN())
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if g.Hash(b) != g.Hash(fromFEN) {
		t.Fatalf("hash differs between replayed board and FEN board")
	}
}

func TestFromFENRejectsGarbage(t *testing.T) {
	if _, err := New().FromFEN("not a fen"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New().FromFEN("   "); err == nil {
		t.Fatalf("expected error for empty fen")
	}
}

func TestResolve(t *testing.T) {
	g := New()

	mated := g.Default()
	play(t, mated, "f2f3", "e7e5", "g2g4", "d8h4")
	if r := g.Resolve(mated, mated.LegalMoves(mated.SideToMove())); r != game.WinFor(1) {
		t.Fatalf("fool's mate result = %+v, want second player win", r)
	}

	stalemate, err := g.FromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if r := g.Resolve(stalemate, stalemate.LegalMoves(stalemate.SideToMove())); r.Kind != game.Draw {
		t.Fatalf("stalemate result = %+v, want draw", r)
	}

	open := g.Default()
	if r := g.Resolve(open, open.LegalMoves(0)); r.Kind != game.Ongoing {
		t.Fatalf("start position result = %+v, want ongoing", r)
	}
}

func TestHistory(t *testing.T) {
	b := New().Default()
	play(t, b, "e2e4", "e7e5")
	h, ok := b.(game.Historian)
	if !ok {
		t.Fatalf("board does not implement Historian")
	}
	fens := h.History()
	if len(fens) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(fens))
	}
	if fens[len(fens)-1] != b.FEN() {
		t.Fatalf("last history entry %q != current %q", fens[len(fens)-1], b.FEN())
	}
}
