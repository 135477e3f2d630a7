// Package timecontrol models the search budget carried by a go command.
package timecontrol

import (
	"strconv"
	"strings"
)

// PlayerTime is one player's remaining clock and increment in milliseconds.
type PlayerTime struct {
	TimeMS uint64
	IncMS  uint64
}

// TimeControl is one of Timed, MoveTime, Depth, Nodes or Infinite.
type TimeControl interface {
	// Args renders the control as go command arguments, without the leading
	// "go". Parse(tc.Args()) yields tc again.
	Args() []string
	String() string
	timeControl()
}

// Timed carries a clock per player in player-index order.
type Timed struct {
	Players []PlayerTime
}

type MoveTime struct {
	MS uint64
}

type Depth struct {
	Plies uint32
}

type Nodes struct {
	Count uint64
}

type Infinite struct{}

func (Timed) timeControl()    {}
func (MoveTime) timeControl() {}
func (Depth) timeControl()    {}
func (Nodes) timeControl()    {}
func (Infinite) timeControl() {}

// Player returns the clock for side, or false when the control has none.
func (t Timed) Player(side int) (PlayerTime, bool) {
	if side < 0 || side >= len(t.Players) {
		return PlayerTime{}, false
	}
	return t.Players[side], true
}

func (t Timed) Args() []string {
	var args []string
	for i, p := range t.Players {
		if i > 1 {
			break
		}
		n := strconv.Itoa(i + 1)
		args = append(args,
			"p"+n+"time", strconv.FormatUint(p.TimeMS, 10),
			"p"+n+"inc", strconv.FormatUint(p.IncMS, 10),
		)
	}
	return args
}

func (m MoveTime) Args() []string {
	return []string{"movetime", strconv.FormatUint(m.MS, 10)}
}

func (d Depth) Args() []string {
	return []string{"depth", strconv.FormatUint(uint64(d.Plies), 10)}
}

func (n Nodes) Args() []string {
	return []string{"nodes", strconv.FormatUint(n.Count, 10)}
}

func (Infinite) Args() []string { return []string{"infinite"} }

func (t Timed) String() string    { return strings.Join(t.Args(), " ") }
func (m MoveTime) String() string { return strings.Join(m.Args(), " ") }
func (d Depth) String() string    { return strings.Join(d.Args(), " ") }
func (n Nodes) String() string    { return strings.Join(n.Args(), " ") }
func (Infinite) String() string   { return "infinite" }

// Equal compares two controls by value.
func Equal(a, b TimeControl) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	at, aok := a.(Timed)
	bt, bok := b.(Timed)
	if aok || bok {
		if !aok || !bok || len(at.Players) != len(bt.Players) {
			return false
		}
		for i := range at.Players {
			if at.Players[i] != bt.Players[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
