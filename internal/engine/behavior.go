// Package engine defines the contract between the protocol session and a
// move-selecting agent.
package engine

import (
	"context"
	"errors"

	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

var ErrNoLegalMove = errors.New("no legal move available")

type EngineInfo struct {
	Name   string
	Author string
}

// MoveSelectionResults is the answer to one go command. Evaluation is in
// centi-pieces, where the least valuable piece of the game is worth 100.
type MoveSelectionResults struct {
	BestMove   game.Action
	Evaluation uint64
}

// Info is a progress report. Nil fields and an empty PV are omitted.
type Info struct {
	Depth *uint32
	Score *int
	PV    string
}

// SearchRequest carries everything one go command hands to an agent. Board
// is lent for the duration of the call and must not be modified or retained;
// agents that need to play moves work on Board.Clone().
type SearchRequest struct {
	Board       game.Board
	TimeControl timecontrol.TimeControl
	// Hashes holds one hash per ply since the last position command,
	// the current position last.
	Hashes []uint64
	// Report, when set, emits an info line.
	Report func(Info)
}

// Info reports progress through the request's callback if one is set.
func (r SearchRequest) Info(info Info) {
	if r.Report != nil {
		r.Report(info)
	}
}

// Behavior is implemented by every agent a session can drive.
type Behavior interface {
	Info() EngineInfo
	// IsReady must return promptly.
	IsReady() bool
	// SelectMove returns the move to play. ctx is cancelled when the
	// controller sends stop or the session ends; an agent should then return
	// its best answer so far rather than an error.
	SelectMove(ctx context.Context, req SearchRequest) (MoveSelectionResults, error)
	// StopSearch asks an in-flight SelectMove to return its best answer so
	// far. It never blocks and may be called from any goroutine.
	StopSearch()
}
