package engine

import "github.com/park285/cheese-ugi/internal/game"

// Querier answers the game-state queries of the protocol.
type Querier interface {
	IsOver(g game.Game, b game.Board) bool
	Result(g game.Game, b game.Board) game.Result
	Turn(b game.Board) int
}

// DefaultQueries resolves queries through the game's own rules. Agents embed
// it and override individual methods when they know better.
type DefaultQueries struct{}

func (DefaultQueries) IsOver(g game.Game, b game.Board) bool {
	return DefaultQueries{}.Result(g, b).Kind != game.Ongoing
}

func (DefaultQueries) Result(g game.Game, b game.Board) game.Result {
	return g.Resolve(b, b.LegalMoves(b.SideToMove()))
}

func (DefaultQueries) Turn(b game.Board) int {
	return b.SideToMove()
}

// QuerierFor returns the behavior's own queries or the defaults.
func QuerierFor(b Behavior) Querier {
	if q, ok := b.(Querier); ok {
		return q
	}
	return DefaultQueries{}
}
