package timecontrol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidValue = errors.New("invalid value")
	ErrMissingValue = errors.New("missing value")
)

// ParseError names the go keyword whose value could not be used.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrMissingValue) {
		return fmt.Sprintf("go %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("go %s %q: %v", e.Key, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Accepted spellings per concept, first match wins.
var aliases = map[string][]string{
	"p1time":   {"p1time", "wtime"},
	"p2time":   {"p2time", "btime"},
	"p1inc":    {"p1inc", "winc"},
	"p2inc":    {"p2inc", "binc"},
	"movetime": {"movetime"},
	"depth":    {"depth"},
	"nodes":    {"nodes"},
}

// Chunks is a go argument list grouped into (key, value) pairs in source
// order. A trailing odd token forms a chunk without a value.
type Chunks [][]string

func NewChunks(args []string) Chunks {
	c := make(Chunks, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		end := i + 2
		if end > len(args) {
			end = len(args)
		}
		c = append(c, args[i:end])
	}
	return c
}

func (c Chunks) find(concept string) ([]string, bool) {
	names := aliases[concept]
	for _, chunk := range c {
		for _, n := range names {
			if chunk[0] == n {
				return chunk, true
			}
		}
	}
	return nil, false
}

// Has reports whether any spelling of concept appears as a key.
func (c Chunks) Has(concept string) bool {
	_, ok := c.find(concept)
	return ok
}

// Raw returns the value paired with the first matching key.
func (c Chunks) Raw(concept string) (string, bool, error) {
	chunk, ok := c.find(concept)
	if !ok {
		return "", false, nil
	}
	if len(chunk) < 2 {
		return "", true, &ParseError{Key: chunk[0], Err: ErrMissingValue}
	}
	return chunk[1], true, nil
}

// Uint parses the value of concept as an unsigned integer of the given bit
// size. ok is false when no spelling of concept is present.
func (c Chunks) Uint(concept string, bitSize int) (uint64, bool, error) {
	chunk, ok := c.find(concept)
	if !ok {
		return 0, false, nil
	}
	if len(chunk) < 2 {
		return 0, true, &ParseError{Key: chunk[0], Err: ErrMissingValue}
	}
	v, err := strconv.ParseUint(chunk[1], 10, bitSize)
	if err != nil {
		return 0, true, &ParseError{Key: chunk[0], Value: chunk[1], Err: ErrInvalidValue}
	}
	return v, true, nil
}

func (c Chunks) required(concept string) (uint64, error) {
	v, ok, err := c.Uint(concept, 64)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ParseError{Key: concept, Err: ErrMissingValue}
	}
	return v, nil
}

func (c Chunks) optional(concept string) (uint64, error) {
	v, _, err := c.Uint(concept, 64)
	return v, err
}

// Parse builds the control for the arguments following "go". Clock keywords
// win over movetime, then depth, then nodes; with none of them the search is
// infinite.
func Parse(args []string) (TimeControl, error) {
	c := NewChunks(args)

	switch {
	case c.Has("p1time") || c.Has("p2time"):
		p1, err := c.required("p1time")
		if err != nil {
			return nil, err
		}
		p2, err := c.required("p2time")
		if err != nil {
			return nil, err
		}
		p1inc, err := c.optional("p1inc")
		if err != nil {
			return nil, err
		}
		p2inc, err := c.optional("p2inc")
		if err != nil {
			return nil, err
		}
		return Timed{Players: []PlayerTime{
			{TimeMS: p1, IncMS: p1inc},
			{TimeMS: p2, IncMS: p2inc},
		}}, nil
	case c.Has("movetime"):
		ms, err := c.required("movetime")
		if err != nil {
			return nil, err
		}
		return MoveTime{MS: ms}, nil
	case c.Has("depth"):
		d, _, err := c.Uint("depth", 32)
		if err != nil {
			return nil, err
		}
		return Depth{Plies: uint32(d)}, nil
	case c.Has("nodes"):
		n, err := c.required("nodes")
		if err != nil {
			return nil, err
		}
		return Nodes{Count: n}, nil
	}
	return Infinite{}, nil
}

// ParseLine parses a full "go ..." line.
func ParseLine(line string) (TimeControl, error) {
	fields := strings.Fields(line)
	if len(fields) > 0 && fields[0] == "go" {
		fields = fields[1:]
	}
	return Parse(fields)
}
