package channel

import (
	"context"

	"github.com/bullet-relay/bulletd/pkg/slack"
)

// SlackAdapter sends Event notifications to one Slack channel id via the
// workspace-wide Slack app token configured in pkg/config.
type SlackAdapter struct {
	svc       *slack.Service
	channelID string
}

// NewSlackAdapter builds a SlackAdapter targeting channelID. svc may be
// nil (e.g. Slack not configured workspace-wide), in which case Send
// always fails, matching the contact-missing-webhook behavior of the
// other channel types.
func NewSlackAdapter(svc *slack.Service, channelID string) *SlackAdapter {
	return &SlackAdapter{svc: svc, channelID: channelID}
}

func (a *SlackAdapter) Send(ctx context.Context, evt Event) bool {
	if a == nil || a.svc == nil {
		return false
	}
	return a.svc.Notify(ctx, slack.TicketNotification{
		TicketID:           evt.TicketID,
		Title:              evt.Title,
		Description:        evt.Description,
		Severity:           evt.Severity,
		Source:             evt.Source,
		AckURL:             evt.AckURL(),
		DetailURL:          evt.DetailURL(),
		NotificationLabel:  evt.NotificationLabel,
		AcknowledgedByName: evt.AcknowledgedByName,
		IsAckNotification:  evt.IsAckNotification,
	})
}
