// Package alert delivers real-time notifications for newly ingested events.
// Delivery is fire-and-forget and happens only after ingestion state is
// durably committed; a failed send is logged and dropped, never retried at
// the cost of blocking or rolling back ingestion. At-least-once behavior on
// re-reads is acceptable here.
package alert

import (
	"context"

	"github.com/honeysting/honeysting/internal/models"
)

// Notification is the structured event summary sent to alert sinks.
type Notification struct {
	RunID     string           `json:"run_id"`
	EventType models.EventType `json:"event_type"`
	SrcIP     string           `json:"src_ip"`
	Country   string           `json:"country,omitempty"`
	DstPort   int              `json:"dst_port"`
	Username  string           `json:"username,omitempty"`
	Password  string           `json:"password,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Channel defines the interface for alert notification delivery.
type Channel interface {
	Send(ctx context.Context, n *Notification) error
	Type() string
}
