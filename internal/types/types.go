package types

import (
	"time"

	"ss2beacon-go/internal/beacon"
)

// LiveRecord is one decoded (or rejected) beacon line as pushed to
// websocket clients.
type LiveRecord struct {
	Type       string          `json:"type"`
	RunID      string          `json:"run_id"`
	Seq        uint64          `json:"seq"`
	ReceivedAt time.Time       `json:"received_at"`
	Schema     string          `json:"schema,omitempty"`
	Line       string          `json:"line"`
	Document   beacon.Document `json:"document,omitempty"`
	Error      string          `json:"error,omitempty"`
}
