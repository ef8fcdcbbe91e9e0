package models

// Contact carries reachability information across every channel type; a
// contact is usable for a given channel iff the corresponding address is
// populated.
type Contact struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Phones           []string `json:"phones,omitempty"`
	Emails           []string `json:"emails,omitempty"`
	FeishuWebhookURL string   `json:"feishu_webhook_url,omitempty"`
	SlackChannelID   string   `json:"slack_channel_id,omitempty"`
	Note             string   `json:"note,omitempty"`
}

// HasFeishu reports whether the contact can be reached over Feishu.
func (c *Contact) HasFeishu() bool { return c.FeishuWebhookURL != "" }

// HasEmail reports whether the contact has at least one email address.
func (c *Contact) HasEmail() bool { return len(c.Emails) > 0 }

// HasPhone reports whether the contact has at least one phone number.
func (c *Contact) HasPhone() bool { return len(c.Phones) > 0 }

// HasSlack reports whether the contact can be reached over Slack.
func (c *Contact) HasSlack() bool { return c.SlackChannelID != "" }

// AddressFor returns the address the given channel type would use for
// this contact and whether the contact is usable for it at all.
func (c *Contact) AddressFor(ct ChannelType) (string, bool) {
	switch ct {
	case ChannelFeishu:
		return c.FeishuWebhookURL, c.HasFeishu()
	case ChannelSlack:
		return c.SlackChannelID, c.HasSlack()
	case ChannelEmail:
		if len(c.Emails) == 0 {
			return "", false
		}
		return c.Emails[0], true
	case ChannelSMS:
		if len(c.Phones) == 0 {
			return "", false
		}
		return c.Phones[0], true
	default:
		return "", false
	}
}
