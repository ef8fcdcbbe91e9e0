package api

// WebhookResponse is returned by POST /webhook/:namespace_slug/:project_id.
type WebhookResponse struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	TicketID      string          `json:"ticket_id,omitempty"`
	Source        string          `json:"source,omitempty"`
	ResolvedCount int             `json:"resolved_count,omitempty"`
	Notifications map[string]bool `json:"notifications,omitempty"`
}

// AckJSONResponse is returned by GET /ack/:ticket_id?format=json.
type AckJSONResponse struct {
	Status   string `json:"status"`
	TicketID string `json:"ticket_id"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
