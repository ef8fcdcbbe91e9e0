package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSAdapter sends ticket notifications as SMS messages via Twilio's
// REST API. The Twilio SDK isn't in the retrieval pack and its API is a
// single authenticated form POST, so this adapter talks to it directly
// over net/http per DESIGN.md.
type SMSAdapter struct {
	accountSID string
	authToken  string
	fromNumber string
	to         []string
	httpClient *http.Client
	apiBaseURL string
	logger     *slog.Logger
}

// NewSMSAdapter builds an SMSAdapter for the given Twilio credentials
// and recipient numbers.
func NewSMSAdapter(accountSID, authToken, fromNumber string, to []string) *SMSAdapter {
	return &SMSAdapter{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		to:         to,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBaseURL: "https://api.twilio.com/2010-04-01",
		logger:     slog.Default().With("component", "sms-adapter"),
	}
}

func (a *SMSAdapter) Send(ctx context.Context, evt Event) bool {
	if a == nil || a.accountSID == "" || a.authToken == "" || len(a.to) == 0 {
		return false
	}

	message := evt.SMSMessage
	if message == "" {
		message = fmt.Sprintf("[%s] %s: %s", strings.ToUpper(evt.Severity), evt.Title, evt.Description)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", a.apiBaseURL, a.accountSID)

	ok := true
	for _, to := range a.to {
		form := url.Values{
			"From": {a.fromNumber},
			"To":   {to},
			"Body": {message},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			a.logger.Error("failed to build twilio request", "error", err)
			ok = false
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(a.accountSID, a.authToken)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			a.logger.Error("twilio request failed", "to", to, "error", err)
			ok = false
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			a.logger.Error("twilio returned error status", "to", to, "status", resp.StatusCode)
			ok = false
		}
	}

	return ok
}
