package scope

// Redact masks every span matched by the scope's redaction patterns. When
// store_raw is false this runs before anything is persisted or emitted; the
// masked text is what downstream consumers see, not a view-level filter.
func (s *Scope) Redact(input string) string {
	if input == "" || len(s.Privacy.RedactPatterns) == 0 {
		return input
	}
	out := input
	for _, re := range s.Privacy.RedactPatterns {
		out = re.ReplaceAllString(out, "[REDACTED]")
	}
	return out
}

// RedactAll redacts a slice of strings, returning a new slice.
func (s *Scope) RedactAll(values []string) []string {
	if len(s.Privacy.RedactPatterns) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = s.Redact(v)
	}
	return out
}

// RedactionActive reports whether signal and evidence text must be masked.
func (s *Scope) RedactionActive() bool {
	return !s.Privacy.StoreRaw && len(s.Privacy.RedactPatterns) > 0
}
