package models

import "time"

// EscalationConfig gates whether the scheduler considers a project's
// tickets at all, and the per-level timeout it applies.
type EscalationConfig struct {
	Enabled        bool `json:"enabled"`
	TimeoutMinutes int  `json:"timeout_minutes"`
}

// Project owns an ordered list of notification groups; escalation level
// is a 1-based index into that list.
type Project struct {
	ID                     string           `json:"id"`
	NamespaceID            string           `json:"namespace_id"`
	Name                   string           `json:"name"`
	Description            string           `json:"description,omitempty"`
	NotificationGroupIDs   []string         `json:"notification_group_ids"`
	NotificationTemplateID string           `json:"notification_template_id,omitempty"`
	Escalation             EscalationConfig `json:"escalation_config"`
	IsActive               bool             `json:"is_active"`
	NotifyOnAck            bool             `json:"notify_on_ack"`
	SilencedUntil          *time.Time       `json:"silenced_until,omitempty"`
}

// IsSilenced reports whether the project is currently suppressing
// notifications as of now.
func (p *Project) IsSilenced(now time.Time) bool {
	return p.SilencedUntil != nil && p.SilencedUntil.After(now)
}

// SilenceRemaining returns how long the silence window has left, or zero
// if the project is not currently silenced.
func (p *Project) SilenceRemaining(now time.Time) time.Duration {
	if !p.IsSilenced(now) {
		return 0
	}
	return p.SilencedUntil.Sub(now)
}

// SilenceDurationOptions are the selectable silence window lengths
// offered by the (out-of-scope) administrative UI; kept here because the
// escalation config and intake paths need to reason about the same unit.
var SilenceDurationOptions = []time.Duration{
	15 * time.Minute,
	30 * time.Minute,
	1 * time.Hour,
	4 * time.Hour,
	24 * time.Hour,
}

// Namespace groups projects under a URL slug, resolved by the webhook
// route before the project lookup.
type Namespace struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}
