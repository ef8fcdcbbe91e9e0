package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var severityEmoji = map[string]string{
	"critical": ":red_circle:",
	"error":    ":large_orange_circle:",
	"warning":  ":large_yellow_circle:",
	"info":     ":large_blue_circle:",
	"notice":   ":white_circle:",
}

// TicketMessageInput is the data BuildTicketMessage needs to render one
// ticket notification as Slack Block Kit blocks.
type TicketMessageInput struct {
	Title              string
	Description        string
	Severity           string
	Source             string
	AckURL             string
	DetailURL          string
	NotificationLabel  string
	AcknowledgedByName string
	IsAckNotification  bool
}

// BuildTicketMessage creates Block Kit blocks for one ticket
// notification: a header carrying severity/label, a body section, and
// an action row with the ack link (omitted once already acknowledged).
func BuildTicketMessage(input TicketMessageInput) []goslack.Block {
	emoji := severityEmoji[input.Severity]
	if emoji == "" {
		emoji = ":bell:"
	}
	if input.IsAckNotification {
		emoji = ":white_check_mark:"
	}

	title := input.Title
	if title == "" {
		title = "新通知"
	}
	header := fmt.Sprintf("%s *%s*", emoji, title)
	if input.NotificationLabel != "" {
		header += fmt.Sprintf("  _(%s)_", input.NotificationLabel)
	}

	var blocks []goslack.Block
	blocks = append(blocks, goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, header, false, false),
		nil, nil,
	))

	body := input.Description
	if input.IsAckNotification && input.AcknowledgedByName != "" {
		body = fmt.Sprintf("确认人: %s\n%s", input.AcknowledgedByName, body)
	}
	if body != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(body), false, false),
			nil, nil,
		))
	}

	var elems []goslack.BlockElement
	if !input.IsAckNotification && input.AckURL != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "确认", false, false))
		btn.URL = input.AckURL
		btn.Style = goslack.StylePrimary
		elems = append(elems, btn)
	}
	if input.DetailURL != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "查看详情", false, false))
		btn.URL = input.DetailURL
		elems = append(elems, btn)
	}
	if len(elems) > 0 {
		blocks = append(blocks, goslack.NewActionBlock("", elems...))
	}

	return blocks
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxBlockTextLength {
		return text
	}
	return string(runes[:maxBlockTextLength]) + "\n\n_...(truncated)_"
}
