package models

// ChannelType is the closed set of transport kinds a channel config can
// target.
type ChannelType string

const (
	ChannelFeishu ChannelType = "feishu"
	ChannelEmail  ChannelType = "email"
	ChannelSMS    ChannelType = "sms"
	ChannelSlack  ChannelType = "slack"
)

// RepeatInterval is expressed in minutes; zero/absent means no repeats.
// RepeatIntervalOptions lists the selectable values offered by the
// (out-of-scope) administrative UI.
var RepeatIntervalOptions = []int{5, 15, 30, 60, 120}

// ChannelConfig binds a transport kind to the contacts reachable through
// it.
type ChannelConfig struct {
	Type       ChannelType `json:"type"`
	ContactIDs []string    `json:"contact_ids"`
}

// NotificationGroup is an ordered collection of channel configs sharing
// one escalation level.
type NotificationGroup struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	RepeatInterval *int            `json:"repeat_interval,omitempty"` // minutes
	ChannelConfigs []ChannelConfig `json:"channel_configs"`
}
