// Package game describes the board engine the protocol layer drives. The
// protocol never looks inside a board; it only asks for these operations.
package game

import "fmt"

// Mode selects how strictly DecodeAction matches a token.
type Mode int

const (
	// NormalMode accepts only actions legal from the current position.
	NormalMode Mode = iota
)

// Action is an opaque move handle. Only the board that produced it can encode
// or apply it.
type Action any

type Board interface {
	DecodeAction(s string, mode Mode) (Action, error)
	EncodeAction(a Action) string
	MakeMove(a Action) error
	FEN() string
	LegalMoves(side int) []Action
	// SideToMove returns the player index, 0 for the first player.
	SideToMove() int
	Clone() Board
}

// Historian is implemented by boards that remember every position since the
// root, oldest first, current position last.
type Historian interface {
	History() []string
}

type Game interface {
	Default() Board
	FromFEN(fen string) (Board, error)
	Resolve(b Board, legal []Action) Result
	Hash(b Board) uint64
}

type ResultKind int

const (
	Ongoing ResultKind = iota
	Draw
	Win
)

// Result is the resolution of a position. Winner is a player index and is
// only meaningful when Kind is Win.
type Result struct {
	Kind   ResultKind
	Winner int
}

func OngoingResult() Result { return Result{Kind: Ongoing} }

func DrawResult() Result { return Result{Kind: Draw} }

func WinFor(side int) Result { return Result{Kind: Win, Winner: side} }

// Token renders the result in query form: p1win, p2win, draw or none.
func (r Result) Token() string {
	switch r.Kind {
	case Win:
		return fmt.Sprintf("p%dwin", r.Winner+1)
	case Draw:
		return "draw"
	default:
		return "none"
	}
}
