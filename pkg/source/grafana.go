package source

// Grafana parses the Grafana/Alertmanager-shaped webhook payload:
// {"status": "firing"|"resolved", "alerts": [{"status", "labels",
// "annotations", "generatorURL", ...}, ...]}. Title/description/severity
// are taken from the first alert, labels are merged group-then-alert,
// mirroring app/api/webhook.py's _extract_ticket_info for a configured
// source parser.
type Grafana struct{}

func (Grafana) Extract(payload map[string]any) Info {
	status, _ := payload["status"].(string)
	if status == "" {
		status = "firing"
	}

	groupLabels := stringMap(payload["commonLabels"])
	if len(groupLabels) == 0 {
		groupLabels = stringMap(payload["groupLabels"])
	}

	alertsRaw, _ := payload["alerts"].([]any)
	if len(alertsRaw) == 0 {
		return Info{
			Labels:     groupLabels,
			Status:     status,
			ParsedData: payload,
		}
	}

	first, _ := alertsRaw[0].(map[string]any)
	labels := stringMap(first["labels"])
	annotations := stringMap(first["annotations"])

	merged := make(map[string]string, len(groupLabels)+len(labels))
	for k, v := range groupLabels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}

	return Info{
		Title:       orDefault(annotations["summary"], labels["alertname"]),
		Description: annotations["description"],
		Severity:    labels["severity"],
		Labels:      merged,
		Status:      status,
		ParsedData:  payload,
	}
}
