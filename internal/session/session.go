// Package session drives the lifecycle of one guided conversation: stage
// progression, captured answers, project naming and the JSON files the
// conversation leaves behind. Sessions auto-save under a temporary name until
// the user confirms a project name, at which point the final export replaces
// the temporary file.
package session

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
)

// Manager binds a session to its template and mediates all state changes
type Manager struct {
	store *Store // nil disables persistence
	tmpl  *models.Template
	sess  *models.Session

	// tempFile is the auto-save target; fixed at first save so repeated
	// auto-saves overwrite one file instead of littering the directory.
	tempFile string
}

// NewManager starts a fresh session for the given template
func NewManager(store *Store, tmpl *models.Template) *Manager {
	now := time.Now()
	return &Manager{
		store: store,
		tmpl:  tmpl,
		sess: &models.Session{
			TemplateID:      tmpl.ID,
			TemplateName:    tmpl.Name,
			CurrentStage:    0,
			Answers:         make(map[string]map[string]interface{}),
			CreatedAt:       now,
			LastUpdated:     now,
			AutoSaveEnabled: true,
		},
	}
}

// Resume continues a previously saved session against its template
func Resume(store *Store, tmpl *models.Template, sess *models.Session) (*Manager, error) {
	if sess.TemplateID != tmpl.ID {
		return nil, errors.ValidationError(
			fmt.Sprintf("session belongs to template '%s', not '%s'", sess.TemplateID, tmpl.ID))
	}
	if sess.Answers == nil {
		sess.Answers = make(map[string]map[string]interface{})
	}
	if sess.CurrentStage > len(tmpl.Stages) {
		sess.CurrentStage = len(tmpl.Stages)
	}
	return &Manager{store: store, tmpl: tmpl, sess: sess}, nil
}

// Session exposes the underlying state for rendering and persistence
func (m *Manager) Session() *models.Session {
	return m.sess
}

// Template returns the framework this session walks through
func (m *Manager) Template() *models.Template {
	return m.tmpl
}

// CurrentStage returns the stage the conversation is on, or nil once every
// stage has been completed.
func (m *Manager) CurrentStage() *models.Stage {
	if m.sess.CurrentStage >= len(m.tmpl.Stages) {
		return nil
	}
	return m.tmpl.Stages[m.sess.CurrentStage]
}

// Complete reports whether every stage has been answered
func (m *Manager) Complete() bool {
	return m.sess.CurrentStage >= len(m.tmpl.Stages)
}

// Progress returns completed and total stage counts
func (m *Manager) Progress() (completed, total int) {
	return len(m.sess.CompletedStages), len(m.tmpl.Stages)
}

// RecordAnswer merges captured data into the current stage's answers, marks
// the stage completed and advances to the next one. The first recorded answer
// also seeds the use case name used for temporary file naming.
func (m *Manager) RecordAnswer(data map[string]interface{}) error {
	stage := m.CurrentStage()
	if stage == nil {
		return errors.ValidationError("all stages are already completed")
	}
	return m.RecordStageAnswer(stage.Key, data)
}

// RecordStageAnswer merges data into the named stage without changing which
// stage is current, except that answering the current stage advances it.
// Revisiting an earlier stage overwrites only the keys provided.
func (m *Manager) RecordStageAnswer(key string, data map[string]interface{}) error {
	stage := m.tmpl.StageByKey(key)
	if stage == nil {
		return errors.NotFoundError(fmt.Sprintf("stage '%s'", key))
	}

	answers := m.sess.Answers[key]
	if answers == nil {
		answers = make(map[string]interface{})
		m.sess.Answers[key] = answers
	}
	for k, v := range data {
		answers[k] = v
	}

	if !m.sess.StageCompleted(key) {
		m.sess.CompletedStages = append(m.sess.CompletedStages, key)
	}
	if current := m.CurrentStage(); current != nil && current.Key == key {
		m.sess.CurrentStage++
	}

	if m.sess.UseCaseName == "" {
		m.sess.UseCaseName = deriveUseCaseName(data)
	}
	m.sess.LastUpdated = time.Now()

	return m.autoSave()
}

// SkipStage advances past the current stage without recording an answer
func (m *Manager) SkipStage() error {
	if m.Complete() {
		return errors.ValidationError("all stages are already completed")
	}
	m.sess.CurrentStage++
	m.sess.LastUpdated = time.Now()
	return m.autoSave()
}

// AppendMessage records a transcript entry
func (m *Manager) AppendMessage(role, content string) {
	m.sess.Messages = append(m.sess.Messages, models.Message{Role: role, Content: content})
	m.sess.LastUpdated = time.Now()
}

// SetPendingProjectName stores a project name awaiting user confirmation
func (m *Manager) SetPendingProjectName(name string) {
	m.sess.PendingProjectName = strings.TrimSpace(name)
	m.sess.LastUpdated = time.Now()
}

// SetAutoSave toggles auto-saving after each recorded answer
func (m *Manager) SetAutoSave(enabled bool) {
	m.sess.AutoSaveEnabled = enabled
}

// Finalize confirms the project name, writes the final export file and
// removes the temporary auto-save. It returns the export filename. An empty
// name falls back to the pending name, then the derived use case name.
func (m *Manager) Finalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = m.sess.PendingProjectName
	}
	if name == "" {
		name = m.sess.UseCaseName
	}
	if name == "" {
		return "", errors.ValidationError("a project name is required to finalize the session")
	}

	m.sess.ProjectName = name
	m.sess.PendingProjectName = ""
	m.sess.LastUpdated = time.Now()

	if m.store == nil {
		return FinalFilename(name, m.sess.LastUpdated), nil
	}

	filename := FinalFilename(name, m.sess.LastUpdated)
	export := BuildExport(m.tmpl, m.sess)
	if err := m.store.SaveExport(filename, export); err != nil {
		return "", err
	}

	if m.tempFile != "" {
		if err := m.store.Delete(m.tempFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temporary session file %s: %v\n", m.tempFile, err)
		}
		m.tempFile = ""
	}

	return filename, nil
}

func (m *Manager) autoSave() error {
	if m.store == nil || !m.sess.AutoSaveEnabled {
		return nil
	}

	if m.tempFile == "" {
		name := m.sess.UseCaseName
		if name == "" {
			name = m.sess.TemplateID
		}
		m.tempFile = TempFilename(name, m.sess.CreatedAt)
	}

	return m.store.SaveSession(m.tempFile, m.sess)
}

// TempFile returns the current auto-save filename, empty before the first save
func (m *Manager) TempFile() string {
	return m.tempFile
}

const filenameTimeLayout = "20060102_150405"

// TempFilename builds the auto-save name: <name>_<YYYYMMDD_HHMMSS>_temp.json
func TempFilename(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s_temp.json", SanitizeName(name), t.Format(filenameTimeLayout))
}

// FinalFilename builds the export name: <name>_<YYYYMMDD_HHMMSS>.json
func FinalFilename(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.json", SanitizeName(name), t.Format(filenameTimeLayout))
}

// SanitizeName turns free text into a safe lowercase filename fragment
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('_')
		}
	}

	cleaned := b.String()
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		cleaned = "session"
	}
	return cleaned
}

// useCaseKeys are answer fields most likely to describe the overall effort,
// checked in order before falling back to any string value.
var useCaseKeys = []string{"primary_problem", "project_name", "use_case", "objective", "description"}

// deriveUseCaseName extracts a short identifying name from the first
// captured answer, capped at four words.
func deriveUseCaseName(data map[string]interface{}) string {
	var text string
	for _, key := range useCaseKeys {
		if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
			text = v
			break
		}
	}
	if text == "" {
		for _, v := range data {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				text = s
				break
			}
		}
	}
	if text == "" {
		return ""
	}

	words := strings.Fields(text)
	if len(words) > 4 {
		words = words[:4]
	}
	return SanitizeName(strings.Join(words, " "))
}
