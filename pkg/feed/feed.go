package feed

import (
	"encoding/json"
	"time"
)

// EventType is the row-change kind carried by a push event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"

	// EventResync is synthesized locally after a reconnect so subscribers
	// re-fetch instead of trusting a gap-free stream.
	EventResync EventType = "RESYNC"
)

// ChangeFilter scopes a subscription to a table and an optional server-side
// row predicate in "column=eq.value" syntax.
type ChangeFilter struct {
	Event  EventType `json:"event"`
	Table  string    `json:"table"`
	Filter string    `json:"filter,omitempty"`
}

// Event is a single row-change notification.
type Event struct {
	Type  EventType       `json:"type"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
	At    time.Time       `json:"at,omitempty"`
}

// Handler consumes push events. Handlers run on the feed's read loop and
// must not block.
type Handler func(Event)

// Subscription is an open, filtered channel subscription.
type Subscription interface {
	// Channel returns the channel name the subscription is bound to.
	Channel() string

	// Unsubscribe closes the subscription. Safe to call more than once.
	Unsubscribe() error
}

// Feed is the push-based change feed consumed by the synchronization hooks.
type Feed interface {
	// Subscribe opens one filtered subscription on a named channel.
	Subscribe(channel string, filter ChangeFilter, handler Handler) (Subscription, error)

	// Close tears down the transport and every open subscription.
	Close() error
}
