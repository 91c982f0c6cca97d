// Package masking redacts sensitive field values from captured request
// and response data before it is stored or exported.
//
// A Policy holds a case-insensitive set of field names. Masking walks
// arbitrarily nested maps and slices, replacing every value found under
// a matching key with MaskValue. The input is never mutated; callers may
// safely hold other references to the captured objects.
package masking

import "strings"

// MaskValue replaces any value stored under a sensitive field name.
const MaskValue = "***MASKED***"

// DefaultFields are the field names masked by every policy, in addition
// to any caller-supplied names.
var DefaultFields = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"key",
	"apikey",
	"api_key",
	"access_token",
	"refresh_token",
	"cookie",
	"set-cookie",
	"session",
	"credentials",
	"x-api-key",
}

// Policy is a set of field names whose values are redacted.
// Matching is case-insensitive and exact (no substring matching).
type Policy struct {
	fields map[string]struct{}
}

// NewPolicy builds a policy from DefaultFields plus the given extra
// field names. Empty strings are ignored.
func NewPolicy(extra ...string) *Policy {
	p := &Policy{fields: make(map[string]struct{}, len(DefaultFields)+len(extra))}
	for _, f := range DefaultFields {
		p.fields[strings.ToLower(f)] = struct{}{}
	}
	for _, f := range extra {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p.fields[strings.ToLower(f)] = struct{}{}
	}
	return p
}

// Matches reports whether the given field name is masked by the policy.
func (p *Policy) Matches(field string) bool {
	_, ok := p.fields[strings.ToLower(field)]
	return ok
}

// Mask returns a deep copy of v with every value reachable under a
// matching key replaced by MaskValue. Maps and slices are copied;
// structure and key order are preserved. Scalars are returned as-is.
func (p *Policy) Mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if p.Matches(k) {
				out[k] = MaskValue
				continue
			}
			out[k] = p.Mask(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = p.Mask(inner)
		}
		return out
	default:
		return v
	}
}

// MaskHeaders masks a header map. A nil map stays nil.
func (p *Policy) MaskHeaders(headers map[string]any) map[string]any {
	if headers == nil {
		return nil
	}
	masked, _ := p.Mask(headers).(map[string]any)
	return masked
}
