// Package models holds the persisted entity types of the alert relay:
// tickets, projects, notification groups, contacts, templates and
// namespaces, plus the small closed-set enums they share.
package models

import "time"

// TicketStatus is the tagged status a ticket occupies at any instant.
type TicketStatus string

const (
	StatusIgnored      TicketStatus = "ignored"
	StatusPending      TicketStatus = "pending"
	StatusAcknowledged TicketStatus = "acknowledged"
	StatusEscalated    TicketStatus = "escalated"
	StatusResolved     TicketStatus = "resolved"
)

// Severity is the ticket's enumerated severity tag.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityNotice   Severity = "notice"
	SeverityNone     Severity = ""
)

// IsCritical reports whether s is "critical", case-insensitively, matching
// the escalation scheduler's severity gate.
func (s Severity) IsCritical() bool {
	return eqFold(string(s), string(SeverityCritical))
}

func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// EventType is the tagged type of a timeline event entry.
type EventType string

const (
	EventCreated          EventType = "created"
	EventNotified         EventType = "notified"
	EventNotifiedSilenced EventType = "notified_silenced"
	EventRepeated         EventType = "repeated"
	EventEscalated        EventType = "escalated"
	EventMaxLevelReached  EventType = "max_level_reached"
	EventAcknowledged     EventType = "acknowledged"
	EventResolved         EventType = "resolved"
)

// AckedByLink is the sentinel acknowledged_by value set by the link-based
// acknowledgement path. Reserved: it collides in principle with a user id
// of the same literal value, by design of the upstream behavior being
// preserved here.
const AckedByLink = "link"

// TicketEvent is one append-only entry in a ticket's timeline.
type TicketEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Level     *int      `json:"level,omitempty"`
	GroupName string    `json:"group_name,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Ticket is the sole entity carrying a state machine. Immutable fields are
// set once at creation by the intake adapter; mutable fields are advanced
// by the notification dispatcher, the acknowledgement gateway and the
// escalation scheduler.
type Ticket struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	// Immutable at creation.
	Source      string            `json:"source"`
	Payload     map[string]any    `json:"payload"`
	ParsedData  map[string]any    `json:"parsed_data,omitempty"`
	Labels      map[string]string `json:"labels"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    Severity          `json:"severity"`
	AckToken    string            `json:"ack_token"`
	CreatedAt   time.Time         `json:"created_at"`

	// Mutable.
	Status            TicketStatus `json:"status"`
	EscalationLevel   int          `json:"escalation_level"`
	LastNotifiedAt    *time.Time   `json:"last_notified_at,omitempty"`
	NotificationCount int          `json:"notification_count"`
	AcknowledgedAt    *time.Time   `json:"acknowledged_at,omitempty"`
	AcknowledgedBy    string       `json:"acknowledged_by,omitempty"`
	ResolvedAt        *time.Time   `json:"resolved_at,omitempty"`
	UpdatedAt         time.Time    `json:"updated_at"`

	Events []TicketEvent `json:"events"`
}

// CanEscalate reports whether the scheduler may repeat or escalate this
// ticket: only critical-severity tickets in pending or escalated status
// are eligible (spec §9 open question 1 — preserved verbatim).
func (t *Ticket) CanEscalate() bool {
	if !t.Severity.IsCritical() {
		return false
	}
	return t.Status == StatusPending || t.Status == StatusEscalated
}

// AddEvent appends a timeline entry and bumps UpdatedAt, preserving the
// append-only, non-decreasing-timestamp invariant.
func (t *Ticket) AddEvent(evt TicketEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	t.Events = append(t.Events, evt)
	if evt.Timestamp.After(t.UpdatedAt) {
		t.UpdatedAt = evt.Timestamp
	}
}

// HasEventType reports whether the timeline already contains an event of
// the given type — used for the max-level-reached one-shot invariant.
func (t *Ticket) HasEventType(et EventType) bool {
	for _, e := range t.Events {
		if e.Type == et {
			return true
		}
	}
	return false
}
