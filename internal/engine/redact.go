package engine

import "strings"

// redactedPlaceholder replaces every secret occurrence in captured
// output.
const redactedPlaceholder = "[REDACTED]"

// Redactor removes resolved secret values from output. Redaction uses
// the real resolved values, not raw user input, so encoded or derived
// references in config never cause a miss.
type Redactor struct {
	replacer *strings.Replacer
}

// NewRedactor builds a redactor for the given secret values. Empty
// values are ignored.
func NewRedactor(values []string) *Redactor {
	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		if v == "" {
			continue
		}
		pairs = append(pairs, v, redactedPlaceholder)
	}
	return &Redactor{replacer: strings.NewReplacer(pairs...)}
}

// Redact returns s with every secret occurrence replaced.
func (r *Redactor) Redact(s string) string {
	if r == nil || r.replacer == nil {
		return s
	}
	return r.replacer.Replace(s)
}
