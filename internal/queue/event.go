// Package queue carries authentication events over RabbitMQ: the payload
// type, a buffered publisher used by the API and a consumer that appends
// events to an audit log file.
package queue

import "time"

// AuthEventsQueue is the durable queue auth events are published to.
const AuthEventsQueue = "auth.events"

// EventType names what happened to a session or account.
type EventType string

const (
	EventRegistered      EventType = "user.registered"
	EventLoggedIn        EventType = "session.logged_in"
	EventLoggedOut       EventType = "session.logged_out"
	EventRefreshed       EventType = "session.refreshed"
	EventRefreshReuse    EventType = "session.refresh_reuse"
	EventPasswordChanged EventType = "user.password_changed"
)

// AuthEvent is published after a state change in the session core. It
// contains enough information for downstream consumers to audit or alert
// without querying the primary database.
type AuthEvent struct {
	Type       EventType `json:"type"`
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
