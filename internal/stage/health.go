package stage

// Health is the readiness of one external dependency (a binary, the LLM
// endpoint, a directory) as shown by `briefcast status`.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Check builds a Health record. A blank detail on failure reads "unavailable".
func Check(name string, ready bool, detail string) Health {
	if !ready && detail == "" {
		detail = "unavailable"
	}
	return Health{Name: name, Ready: ready, Detail: detail}
}
