// Package chessgame adapts github.com/corentings/chess/v2 to the game
// interfaces used by the protocol session.
package chessgame

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-ugi/internal/game"
)

// StartFEN is the standard chess starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrNotChessMove = errors.New("action is not a chess move")
	ErrIllegalMove  = errors.New("illegal move")
)

// Chess is the standard chess rule set.
type Chess struct{}

func New() *Chess { return &Chess{} }

func (c *Chess) Default() game.Board {
	return &Board{g: nchess.NewGame()}
}

func (c *Chess) FromFEN(fen string) (game.Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("decode fen: empty string")
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("decode fen %q: %w", fen, err)
	}
	return &Board{g: nchess.NewGame(opt)}, nil
}

// Resolve reports the outcome the library has recorded for the position and
// treats a position without legal moves and without a recorded winner as a
// draw.
func (c *Chess) Resolve(b game.Board, legal []game.Action) game.Result {
	cb, ok := b.(*Board)
	if !ok {
		if len(legal) == 0 {
			return game.DrawResult()
		}
		return game.OngoingResult()
	}
	switch cb.g.Outcome() {
	case nchess.WhiteWon:
		return game.WinFor(0)
	case nchess.BlackWon:
		return game.WinFor(1)
	case nchess.Draw:
		return game.DrawResult()
	}
	if len(legal) == 0 {
		return game.DrawResult()
	}
	return game.OngoingResult()
}

func (c *Chess) Hash(b game.Board) uint64 {
	cb, ok := b.(*Board)
	if !ok {
		return 0
	}
	return zobrist(cb.g.Position())
}

// Board is a chess game in progress. Actions are *nchess.Move values.
type Board struct {
	g *nchess.Game
}

// DecodeAction parses a move in coordinate notation (e2e4, e7e8q) and matches
// it against the legal moves of the position.
func (b *Board) DecodeAction(s string, mode game.Mode) (game.Action, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if token == "" {
		return nil, fmt.Errorf("decode %q: %w", s, ErrIllegalMove)
	}
	pos := b.g.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, token)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", s, err)
	}
	moves := b.g.ValidMoves()
	for i := range moves {
		if moves[i].S1() == mv.S1() && moves[i].S2() == mv.S2() && moves[i].Promo() == mv.Promo() {
			return &moves[i], nil
		}
	}
	return nil, fmt.Errorf("decode %q: %w", s, ErrIllegalMove)
}

func (b *Board) EncodeAction(a game.Action) string {
	mv, ok := a.(*nchess.Move)
	if !ok || mv == nil {
		return ""
	}
	return nchess.UCINotation{}.Encode(b.g.Position(), mv)
}

func (b *Board) MakeMove(a game.Action) error {
	mv, ok := a.(*nchess.Move)
	if !ok || mv == nil {
		return ErrNotChessMove
	}
	if err := b.g.Move(mv, nil); err != nil {
		return fmt.Errorf("apply %s: %w", mv.String(), err)
	}
	return nil
}

func (b *Board) FEN() string { return b.g.FEN() }

// LegalMoves only generates moves for the side to move; any other side has
// none.
func (b *Board) LegalMoves(side int) []game.Action {
	if side != b.SideToMove() {
		return nil
	}
	moves := b.g.ValidMoves()
	out := make([]game.Action, 0, len(moves))
	for i := range moves {
		out = append(out, &moves[i])
	}
	return out
}

func (b *Board) SideToMove() int {
	if b.g.Position().Turn() == nchess.Black {
		return 1
	}
	return 0
}

func (b *Board) Clone() game.Board {
	return &Board{g: b.g.Clone()}
}

func (b *Board) History() []string {
	positions := b.g.Positions()
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		if p == nil {
			continue
		}
		out = append(out, p.String())
	}
	return out
}
