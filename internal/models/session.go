package models

import "time"

// Role values for chat messages
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one chat transcript entry
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds the evolving state of one guided conversation: which stage
// the user is on, the answers captured so far keyed by stage key, and the
// naming/auto-save bookkeeping around the eventual JSON export.
type Session struct {
	TemplateID   string `json:"template_type"`
	TemplateName string `json:"template_name"`

	CurrentStage    int                               `json:"current_stage"`
	CompletedStages []string                          `json:"completed_stages"`
	Answers         map[string]map[string]interface{} `json:"json_config"`

	// UseCaseName is derived from the first meaningful answer and drives
	// temporary auto-save filenames until the project name is finalized.
	UseCaseName string `json:"use_case_name"`

	// PendingProjectName holds a name the user typed but has not confirmed.
	// ProjectName is set only at finalization.
	PendingProjectName string `json:"pending_project_name,omitempty"`
	ProjectName        string `json:"project_name,omitempty"`

	Messages []Message `json:"messages,omitempty"`

	CreatedAt       time.Time `json:"created_date"`
	LastUpdated     time.Time `json:"last_updated"`
	AutoSaveEnabled bool      `json:"auto_save_enabled"`
}

// Finalized reports whether the project name has been confirmed
func (s *Session) Finalized() bool {
	return s.ProjectName != ""
}

// StageCompleted reports whether the given stage key has been answered
func (s *Session) StageCompleted(key string) bool {
	for _, k := range s.CompletedStages {
		if k == key {
			return true
		}
	}
	return false
}
