package rules

// Filter selects rules by scope and language. Empty fields match everything.
type Filter struct {
	Scope    string `json:"scope,omitempty"`
	Language string `json:"language,omitempty"`
}

// IsZero reports whether the filter has no predicates.
func (f Filter) IsZero() bool {
	return f.Scope == "" && f.Language == ""
}

// Match applies both predicates. Scope matches by equality; language matches
// when it equals the rule's single tag or is a member of its set. A rule with
// no language never matches a language predicate.
func (f Filter) Match(r Rule) bool {
	if f.Scope != "" && r.Scope != f.Scope {
		return false
	}
	if f.Language != "" && !r.Language.Contains(f.Language) {
		return false
	}
	return true
}

// Apply returns the matching rules in input order.
func (f Filter) Apply(in []Rule) []Rule {
	if f.IsZero() {
		return in
	}
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
