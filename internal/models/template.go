package models

import (
	"fmt"
	"strings"
)

// Template represents one parsed conversation framework: display metadata
// plus the ordered sequence of stages the conversation walks through.
// A Template is constructed once per source file and never mutated after.
type Template struct {
	ID       string `json:"template_id"`
	Name     string `json:"name"`
	Summary  string `json:"description"`
	Category string `json:"category"`
	Version  string `json:"version"`
	Author   string `json:"author"`

	// DeclaredStages is the stages_count value from the metadata block. It is
	// documentation, not a structural requirement; len(Stages) is the truth.
	DeclaredStages int `json:"stages_count"`

	// Stages in document order; the conversation proceeds stage 1..N.
	Stages []*Stage `json:"stages"`

	FilePath string `json:"-"` // Path to the source file, relative to the templates dir
}

// Stage is one step of the guided conversation
type Stage struct {
	Key               string                 `json:"key"`
	Title             string                 `json:"title"`
	Prompt            string                 `json:"prompt"`
	Examples          []string               `json:"examples"`
	FollowUpQuestions []string               `json:"follow_up_questions"`
	JSONSchema        map[string]interface{} `json:"json_schema"`
}

// StageByKey returns the stage with the given key, or nil
func (t *Template) StageByKey(key string) *Stage {
	for _, s := range t.Stages {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// StageTitles returns the ordered titles of all stages
func (t *Template) StageTitles() []string {
	titles := make([]string, len(t.Stages))
	for i, s := range t.Stages {
		titles[i] = s.Title
	}
	return titles
}

// Implement list.Item interface for the bubbles list component

// FilterValue returns the value used for filtering in lists
func (t Template) FilterValue() string {
	return cleanString(t.Name)
}

// Title satisfies the list.Item interface
func (t Template) Title() string {
	if t.Name != "" {
		return cleanString(t.Name)
	}
	return cleanString(t.ID)
}

// Description satisfies the list.Item interface
func (t Template) Description() string {
	var parts []string

	if summary := cleanString(t.Summary); summary != "" {
		maxLen := 60
		if len(summary) > maxLen {
			summary = summary[:maxLen-3] + "..."
		}
		parts = append(parts, summary)
	}

	if t.Category != "" {
		parts = append(parts, t.Category)
	}

	parts = append(parts, fmt.Sprintf("%d stages", len(t.Stages)))

	return cleanString(strings.Join(parts, " • "))
}

// cleanString removes control characters that could break list rendering
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	for strings.Contains(cleaned, "  ") {
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	}

	return strings.TrimSpace(cleaned)
}
