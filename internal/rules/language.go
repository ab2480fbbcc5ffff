package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// General is the language value for rules that apply to every language.
const General = "general"

// Language is either a single language tag or a set of tags. On the wire it
// is a JSON string when it holds one tag and an array otherwise.
type Language []string

// Lang builds a Language from one or more tags.
func Lang(tags ...string) Language {
	return Language(tags)
}

// UnmarshalJSON accepts a string, an array of strings or null.
func (l *Language) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = Language{s}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("language must be a string or an array of strings: %w", err)
	}
	*l = Language(tags)
	return nil
}

// MarshalJSON writes a single tag as a string and a set as an array.
func (l Language) MarshalJSON() ([]byte, error) {
	switch len(l) {
	case 0:
		return json.Marshal(General)
	case 1:
		return json.Marshal(l[0])
	default:
		return json.Marshal([]string(l))
	}
}

// IsGeneral reports whether the rule is language independent.
func (l Language) IsGeneral() bool {
	for _, tag := range l {
		if tag != General && tag != "" {
			return false
		}
	}
	return true
}

// Contains reports whether tag equals the single language or is a member of
// the set.
func (l Language) Contains(tag string) bool {
	return slices.Contains(l, tag)
}

// Folder is the storage subfolder name: the tag itself, or the sorted,
// de-duplicated tags joined by commas for a set. General languages have no
// folder.
func (l Language) Folder() string {
	if l.IsGeneral() {
		return ""
	}
	tags := make([]string, 0, len(l))
	for _, tag := range l {
		if tag != "" && tag != General {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	tags = slices.Compact(tags)
	return strings.Join(tags, ",")
}

func (l Language) String() string {
	if len(l) == 0 {
		return General
	}
	return strings.Join(l, ",")
}
