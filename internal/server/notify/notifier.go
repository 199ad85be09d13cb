// Package notify delivers sync events to the fan-out layer. Clients holding
// a websocket connection receive the event and compare their revision date.
package notify

import "context"

// Event names published by the sharing core.
const (
	EventSharingCreated  = "sharing.created"
	EventSharingStopped  = "sharing.stopped"
	EventMemberAccepted  = "sharing.member.accepted"
	EventMemberRejected  = "sharing.member.rejected"
	EventMemberConfirmed = "sharing.member.confirmed"
	EventMemberUpdated   = "sharing.member.updated"
	EventVaultChanged    = "vault.changed"
)

// SyncEvent tells the fan-out layer which users need to resync.
type SyncEvent struct {
	Event   string   `json:"event"`
	UserIDs []string `json:"user_ids"`
}

// Notifier publishes sync events. Delivery is best effort: the sharing core
// never blocks or fails a committed mutation on a publish error.
type Notifier interface {
	Publish(ctx context.Context, event SyncEvent) error
}

// Noop discards every event. Used in tests and when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, event SyncEvent) error { return nil }
