// Package channel implements the thin per-transport adapters the
// notification dispatcher (pkg/services.NotificationService) invokes
// once it has resolved a channel config's contacts and rendered
// artifacts. Adapters never raise to the dispatcher: every Send call
// returns a bool success flag, exactly as spec.md §4.B requires.
package channel

import "context"

// Event is the transient, dispatcher-built payload every adapter
// receives: the raw alert context plus whatever rendered artifact the
// channel type understands.
type Event struct {
	Source      string
	Labels      map[string]string
	Payload     map[string]any
	TicketID    string
	AckToken    string
	BaseURL     string
	Title       string
	Description string
	Severity    string

	// NotificationLabel is a short human tag for which send this is
	// ("第3次通知", "已升级到 L2", "已确认 by alice", ...; empty for the
	// first send), shown alongside the title where the channel format
	// allows it.
	NotificationLabel string

	// IsAckNotification and AcknowledgedByName distinguish the
	// acknowledgement-confirmation send from the original alert sends;
	// when true, adapters omit any ack action and show who acked instead.
	IsAckNotification  bool
	AcknowledgedByName string

	// FeishuCard is the rendered card JSON, or nil if none was rendered
	// or the channel falls back to its default format.
	FeishuCard map[string]any

	// EmailSubject/EmailBody are the rendered email artifacts, or empty
	// strings if none was rendered.
	EmailSubject string
	EmailBody    string

	// SMSMessage is the rendered SMS artifact, or empty if none was
	// rendered.
	SMSMessage string
}

// AckURL builds the one-click acknowledgement link for this event, or
// the empty string if no base URL / ticket id / token is available.
func (e Event) AckURL() string {
	if e.BaseURL == "" || e.TicketID == "" || e.AckToken == "" {
		return ""
	}
	return e.BaseURL + "/ack/" + e.TicketID + "?token=" + e.AckToken
}

// DetailURL builds the ticket detail link for this event, or the empty
// string if no base URL is available.
func (e Event) DetailURL() string {
	if e.BaseURL == "" || e.TicketID == "" {
		return ""
	}
	return e.BaseURL + "/tickets/" + e.TicketID
}

// Adapter sends one Event over a specific transport to one destination
// address (a webhook URL, a channel id, an email list, a phone list).
type Adapter interface {
	Send(ctx context.Context, evt Event) bool
}
