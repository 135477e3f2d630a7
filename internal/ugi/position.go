package ugi

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-ugi/internal/game"
)

// InitialPosition selects the base board: the game's default position when
// FEN is empty, the decoded FEN otherwise.
type InitialPosition struct {
	FEN string
}

func Startpos() InitialPosition { return InitialPosition{} }

func (p InitialPosition) IsStartpos() bool { return p.FEN == "" }

// MoveError reports a move token that does not match any legal action.
type MoveError struct {
	Action string
	FEN    string
	Err    error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("could not find action %s from FEN %s: %v", e.Action, e.FEN, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

type FENError struct {
	FEN string
	Err error
}

func (e *FENError) Error() string { return fmt.Sprintf("load fen %q: %v", e.FEN, e.Err) }

func (e *FENError) Unwrap() error { return e.Err }

// BuildPosition replays moves from the initial position. The returned trail
// holds the hash of the initial position followed by one hash per move.
func BuildPosition(g game.Game, start InitialPosition, moves []string) (game.Board, []uint64, error) {
	var board game.Board
	if start.IsStartpos() {
		board = g.Default()
	} else {
		b, err := g.FromFEN(start.FEN)
		if err != nil {
			return nil, nil, &FENError{FEN: start.FEN, Err: err}
		}
		board = b
	}

	hashes := make([]uint64, 0, len(moves)+1)
	hashes = append(hashes, g.Hash(board))
	for _, tok := range moves {
		a, err := board.DecodeAction(tok, game.NormalMode)
		if err != nil {
			return nil, nil, &MoveError{Action: tok, FEN: board.FEN(), Err: err}
		}
		if err := board.MakeMove(a); err != nil {
			return nil, nil, &MoveError{Action: tok, FEN: board.FEN(), Err: err}
		}
		hashes = append(hashes, g.Hash(board))
	}
	return board, hashes, nil
}

type positionArgs struct {
	start InitialPosition
	moves []string
}

// parsePositionArgs splits "startpos [moves ...]" or "fen <FEN> [moves ...]".
// Whitespace around the moves keyword is optional; anything else after
// startpos is rejected.
func parsePositionArgs(args string) (positionArgs, bool) {
	args = strings.TrimSpace(args)

	var rest string
	var isFEN bool
	switch {
	case strings.HasPrefix(args, "startpos"):
		rest = strings.TrimPrefix(args, "startpos")
	case strings.HasPrefix(args, "fen"):
		rest = strings.TrimPrefix(args, "fen")
		isFEN = true
	default:
		return positionArgs{}, false
	}

	head, tail := rest, ""
	if i := strings.Index(rest, "moves"); i >= 0 {
		head, tail = rest[:i], rest[i+len("moves"):]
	}

	var p positionArgs
	if !isFEN && strings.TrimSpace(head) != "" {
		return positionArgs{}, false
	}
	if isFEN {
		fen := strings.Join(strings.Fields(head), " ")
		if fen == "" {
			return positionArgs{}, false
		}
		p.start = InitialPosition{FEN: fen}
	}
	p.moves = strings.Fields(tail)
	return p, true
}
