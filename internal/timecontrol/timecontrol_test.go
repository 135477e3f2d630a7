package timecontrol

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want TimeControl
	}{
		{"go", Infinite{}},
		{"go infinite", Infinite{}},
		{"go depth 5", Depth{Plies: 5}},
		{"go movetime 2000", MoveTime{MS: 2000}},
		{"go nodes 10000", Nodes{Count: 10000}},
		{"go wtime 100 btime 200", Timed{Players: []PlayerTime{{TimeMS: 100}, {TimeMS: 200}}}},
		{"go p1time 100 p2time 200 p1inc 5 p2inc 7", Timed{Players: []PlayerTime{{100, 5}, {200, 7}}}},
		{"go wtime 100 btime 200 winc 1 binc 2", Timed{Players: []PlayerTime{{100, 1}, {200, 2}}}},
		{"go binc 2 btime 200 wtime 100", Timed{Players: []PlayerTime{{100, 0}, {200, 2}}}},
		{"go depth 3 movetime 50", MoveTime{MS: 50}},
		{"go nodes 9 depth 4", Depth{Plies: 4}},
		{"go wtime 1 btime 2 movetime 3", Timed{Players: []PlayerTime{{TimeMS: 1}, {TimeMS: 2}}}},
		{"go p1time 10 btime 20", Timed{Players: []PlayerTime{{TimeMS: 10}, {TimeMS: 20}}}},
	}
	for _, tc := range cases {
		got, err := ParseLine(tc.line)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.line, err)
		}
		if !Equal(got, tc.want) {
			t.Fatalf("%q: got %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestParseOrderIndependent(t *testing.T) {
	a, err := ParseLine("go wtime 100 btime 100")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := ParseLine("go btime 100 wtime 100")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !Equal(a, b) {
		t.Fatalf("alias order changed the result: %v vs %v", a, b)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		line string
		key  string
		err  error
	}{
		{"go depth five", "depth", ErrInvalidValue},
		{"go movetime -1", "movetime", ErrInvalidValue},
		{"go wtime 100", "p2time", ErrMissingValue},
		{"go btime 100", "p1time", ErrMissingValue},
		{"go wtime 100 btime 100 winc x", "winc", ErrInvalidValue},
		{"go nodes", "nodes", ErrMissingValue},
		{"go depth 99999999999", "depth", ErrInvalidValue},
	}
	for _, tc := range cases {
		_, err := ParseLine(tc.line)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", tc.line, err)
		}
		if pe.Key != tc.key {
			t.Fatalf("%q: error names %q, want %q", tc.line, pe.Key, tc.key)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: expected %v, got %v", tc.line, tc.err, err)
		}
		if !strings.Contains(err.Error(), tc.key) {
			t.Fatalf("%q: message %q does not name the key", tc.line, err.Error())
		}
	}
}

func TestArgsRoundTrip(t *testing.T) {
	controls := []TimeControl{
		Infinite{},
		Depth{Plies: 12},
		MoveTime{MS: 1500},
		Nodes{Count: 1 << 40},
		Timed{Players: []PlayerTime{{60000, 1000}, {59000, 1000}}},
	}
	for _, tc := range controls {
		back, err := Parse(tc.Args())
		if err != nil {
			t.Fatalf("%v: %v", tc, err)
		}
		if !Equal(tc, back) {
			t.Fatalf("round trip %v -> %v", tc, back)
		}
	}
}

func TestChunks(t *testing.T) {
	c := NewChunks(strings.Fields("wtime 1 btime 2 ponder"))
	if len(c) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(c))
	}
	if !c.Has("p1time") || !c.Has("p2time") || c.Has("movetime") {
		t.Fatalf("alias lookup mismatch: %v", c)
	}
	v, ok, err := c.Raw("p2time")
	if err != nil || !ok || v != "2" {
		t.Fatalf("Raw(p2time) = %q %v %v", v, ok, err)
	}
	if p, ok := (Timed{Players: []PlayerTime{{1, 0}}}).Player(1); ok {
		t.Fatalf("unexpected player clock %v", p)
	}
}
