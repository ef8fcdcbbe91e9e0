package source

// Generic extracts the common fields a vendor-agnostic payload might
// carry, mirroring the fallback branch of
// app/api/webhook.py's _extract_ticket_info.
type Generic struct{}

func (Generic) Extract(payload map[string]any) Info {
	return Info{
		Title:       firstString(payload, "title", "alertname", "name"),
		Description: firstString(payload, "message", "description"),
		Severity:    firstString(payload, "severity", "level"),
		Labels:      stringMap(payload["labels"]),
		Status:      orDefault(firstString(payload, "status"), "firing"),
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		if s, ok := raw.(string); ok {
			out[k] = s
		}
	}
	return out
}
