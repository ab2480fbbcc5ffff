// level.go provides the read-side projection used by the rule database
// listing. Three levels enable progressive disclosure:
//   - 1: name and description only
//   - 2: adds scope and language
//   - 3: the full rule (default)
package rules

// Level controls how much of a rule a listing returns.
type Level string

// Level constants.
const (
	LevelSummary Level = "1"
	LevelScoped  Level = "2"
	LevelFull    Level = "3"
)

// LevelValues returns the enum values for MCP tool definitions.
func LevelValues() []string {
	return []string{string(LevelSummary), string(LevelScoped), string(LevelFull)}
}

// ParseLevel normalizes a level string; anything unrecognized is full.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelSummary, LevelScoped:
		return Level(s)
	default:
		return LevelFull
	}
}

// View is a projected rule. Fields left nil are omitted from JSON.
type View struct {
	ID          int64          `json:"id,omitempty"`
	RuleName    string         `json:"rule_name"`
	Description string         `json:"description"`
	Scope       *string        `json:"scope,omitempty"`
	Language    *Language      `json:"language,omitempty"`
	Content     map[string]any `json:"rule_content,omitempty"`
	Categories  *[]string      `json:"categories,omitempty"`
}

// Project builds the view of r for the given level.
func Project(r Rule, level Level) View {
	v := View{RuleName: r.Name, Description: r.Description}
	if level == LevelSummary {
		return v
	}
	scope, lang := r.Scope, r.Language
	v.Scope, v.Language = &scope, &lang
	if level == LevelScoped {
		return v
	}
	cats := r.Categories
	if cats == nil {
		cats = []string{}
	}
	v.Content, v.Categories = r.Content, &cats
	return v
}

// ProjectAll projects every rule, keeping input order.
func ProjectAll(in []Rule, level Level) []View {
	out := make([]View, len(in))
	for i, r := range in {
		out[i] = Project(r, level)
	}
	return out
}
