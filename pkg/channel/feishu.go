package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// FeishuAdapter posts interactive-card messages to a Feishu (Lark)
// incoming-webhook bot, optionally HMAC-signed when the bot requires a
// shared secret. No pack library covers Feishu's wire protocol, so this
// adapter talks to the webhook directly over net/http per DESIGN.md.
type FeishuAdapter struct {
	webhookURL string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFeishuAdapter builds a FeishuAdapter posting to webhookURL. secret
// may be empty when the bot has no signature verification configured.
func NewFeishuAdapter(webhookURL, secret string) *FeishuAdapter {
	return &FeishuAdapter{
		webhookURL: webhookURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default().With("component", "feishu-adapter"),
	}
}

func (a *FeishuAdapter) Send(ctx context.Context, evt Event) bool {
	if a == nil || a.webhookURL == "" {
		return false
	}

	message := a.buildCard(evt)

	if a.secret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		message["timestamp"] = ts
		message["sign"] = a.sign(ts)
	}

	body, err := json.Marshal(message)
	if err != nil {
		a.logger.Error("failed to marshal feishu message", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		a.logger.Error("failed to build feishu request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("feishu webhook request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Error("feishu webhook returned error status", "status", resp.StatusCode)
		return false
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != 0 {
		a.logger.Error("feishu api error", "code", result.Code, "msg", result.Msg)
		return false
	}

	return true
}

func (a *FeishuAdapter) sign(timestamp string) string {
	stringToSign := timestamp + "\n" + a.secret
	mac := hmac.New(sha256.New, []byte(stringToSign))
	mac.Write(nil)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// buildCard prefers the template-rendered card when one was produced,
// falling back to a generic card built from the ticket fields.
func (a *FeishuAdapter) buildCard(evt Event) map[string]any {
	if len(evt.FeishuCard) > 0 {
		return map[string]any{
			"msg_type": "interactive",
			"card":     evt.FeishuCard,
		}
	}

	color := severityColor(evt.Severity)
	title := evt.Title
	if title == "" {
		title = "Alert"
	}
	if evt.IsAckNotification {
		title = "✅ " + title
	} else {
		title = "🔔 " + title
	}

	var elements []map[string]any
	if evt.Description != "" {
		elements = append(elements, map[string]any{
			"tag":  "div",
			"text": map[string]any{"tag": "lark_md", "content": truncateRunes(evt.Description, 500)},
		})
	}
	if len(evt.Labels) > 0 {
		elements = append(elements, map[string]any{
			"tag":  "div",
			"text": map[string]any{"tag": "lark_md", "content": formatLabels(evt.Labels)},
		})
	}
	elements = append(elements, map[string]any{"tag": "hr"})

	var actions []map[string]any
	if ackURL := evt.AckURL(); ackURL != "" && !evt.IsAckNotification {
		actions = append(actions, map[string]any{
			"tag":  "button",
			"text": map[string]any{"tag": "plain_text", "content": "确认工单"},
			"type": "primary",
			"url":  ackURL,
		})
	}
	if detailURL := evt.DetailURL(); detailURL != "" {
		actions = append(actions, map[string]any{
			"tag":  "button",
			"text": map[string]any{"tag": "plain_text", "content": "查看详情"},
			"type": "default",
			"url":  detailURL,
		})
	}
	if len(actions) > 0 {
		elements = append(elements, map[string]any{"tag": "action", "actions": actions})
	}

	elements = append(elements, map[string]any{
		"tag": "note",
		"elements": []map[string]any{
			{"tag": "plain_text", "content": fmt.Sprintf("来源: %s | Ticket: %s", evt.Source, evt.TicketID)},
		},
	})

	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header":   map[string]any{"title": map[string]any{"tag": "plain_text", "content": title}, "template": color},
			"elements": elements,
		},
	}
}

func severityColor(severity string) string {
	switch severity {
	case "critical", "error":
		return "red"
	case "warning":
		return "orange"
	default:
		return "blue"
	}
}

func formatLabels(labels map[string]string) string {
	out := "**标签:** "
	first := true
	for k, v := range labels {
		if !first {
			out += " | "
		}
		out += fmt.Sprintf("`%s=%s`", k, v)
		first = false
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
