package domain

import "time"

// SearchRecord is one answered go command.
type SearchRecord struct {
	ID          int64
	SessionID   string
	Agent       string
	Ply         int
	FEN         string
	Move        string
	Evaluation  uint64
	TimeControl string
	Duration    time.Duration
	CreatedAt   time.Time
}
