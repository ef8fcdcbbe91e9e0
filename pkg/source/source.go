// Package source holds the pluggable per-vendor payload parsers the
// intake adapter (pkg/services.IntakeService) calls before creating a
// ticket. Vendor parsing itself is a collaborator contract spec.md §1
// places out of scope; this package gives the intake adapter something
// concrete to call.
package source

// Info is the normalized extraction the intake adapter needs: title,
// description, severity, labels, the inbound alert status, and an
// optional structured parse of the raw payload for template contexts.
type Info struct {
	Title       string
	Description string
	Severity    string
	Labels      map[string]string
	Status      string // "firing", "resolved", or a source-specific value
	ParsedData  map[string]any
}

// Source extracts normalized Info from a raw webhook payload.
type Source interface {
	Extract(payload map[string]any) Info
}

// Registry resolves a Source by its tag name, falling back to the
// generic extractor for unknown tags — mirroring
// app/api/webhook.py's get_sources()/_extract_ticket_info fallback.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds the default registry of known source parsers.
func NewRegistry() *Registry {
	return &Registry{
		sources: map[string]Source{
			"grafana":    Grafana{},
			"aliyun_pai": Aliyun{},
		},
	}
}

// Extract resolves the named source (or the generic fallback) and runs
// it against the payload.
func (r *Registry) Extract(name string, payload map[string]any) Info {
	if s, ok := r.sources[name]; ok {
		return s.Extract(payload)
	}
	return Generic{}.Extract(payload)
}
