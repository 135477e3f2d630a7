package ugidto

import "time"

type SessionInfo struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	Dialect   string    `json:"dialect,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

type Health struct {
	Status   string `json:"status"`
	Agent    string `json:"agent"`
	Sessions int    `json:"sessions"`
}

type SessionList struct {
	Sessions []SessionInfo `json:"sessions"`
}
