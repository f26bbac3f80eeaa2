// Package service provides the business logic shared by the CLI, TUI and
// HTTP interfaces: template lookup and search, session lifecycle and chat
// completion wiring.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/serbantica/Chat-Assistant/internal/chat"
	"github.com/serbantica/Chat-Assistant/internal/config"
	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/registry"
	"github.com/serbantica/Chat-Assistant/internal/session"
	"github.com/serbantica/Chat-Assistant/internal/validation"
)

// Service wires the registry, session store and chat client together
type Service struct {
	cfg      *config.Config
	registry *registry.Registry
	sessions *session.Store

	// chatClient is created lazily; listing and validating templates must
	// work without an API key.
	chatClient *chat.Client
}

// New creates a service from resolved configuration
func New(cfg *config.Config) (*Service, error) {
	reg, err := registry.New(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		registry: reg,
		sessions: store,
	}, nil
}

// Registry exposes the template registry
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Sessions exposes the session store
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// ListTemplates returns all available templates
func (s *Service) ListTemplates() []*models.Template {
	return s.registry.List()
}

// GetTemplate returns a template by id
func (s *Service) GetTemplate(id string) (*models.Template, error) {
	return s.registry.Get(id)
}

// ReloadTemplates rescans the templates directory
func (s *Service) ReloadTemplates() error {
	return s.registry.Reload()
}

// SearchTemplates performs fuzzy search over template names, ids, summaries
// and stage titles.
func (s *Service) SearchTemplates(query string) []*models.Template {
	templates := s.registry.List()
	if strings.TrimSpace(query) == "" {
		return templates
	}

	var searchStrings []string
	for _, t := range templates {
		searchStr := fmt.Sprintf("%s %s %s %s",
			t.Name,
			t.ID,
			t.Summary,
			strings.Join(t.StageTitles(), " "))
		searchStrings = append(searchStrings, searchStr)
	}

	matches := fuzzy.Find(query, searchStrings)

	var results []*models.Template
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}
	return results
}

// ValidateTemplates produces authoring reports for every template file
func (s *Service) ValidateTemplates() []*validation.Report {
	return validation.ValidateAll(s.registry)
}

// StartSession begins a new conversation for the given template id
func (s *Service) StartSession(templateID string) (*session.Manager, error) {
	tmpl, err := s.registry.Get(templateID)
	if err != nil {
		return nil, err
	}
	return session.NewManager(s.sessions, tmpl), nil
}

// ResumeSession continues a saved session from its file
func (s *Service) ResumeSession(filename string) (*session.Manager, error) {
	sess, err := s.sessions.LoadSession(filename)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.registry.Get(sess.TemplateID)
	if err != nil {
		return nil, err
	}
	return session.Resume(s.sessions, tmpl, sess)
}

// ListSessions returns saved session and export files, newest first
func (s *Service) ListSessions() ([]session.Info, error) {
	return s.sessions.List()
}

// DeleteSession removes a saved session or export file
func (s *Service) DeleteSession(filename string) error {
	return s.sessions.Delete(filename)
}

// ChatEnabled reports whether an API key is configured
func (s *Service) ChatEnabled() bool {
	return s.cfg.OpenAI.APIKey != ""
}

// Chat sends the session transcript to the completion API and returns the
// assistant's reply. The stage context for the manager's current stage is
// appended to the system prompt.
func (s *Service) Chat(ctx context.Context, m *session.Manager) (string, error) {
	client, err := s.getChatClient()
	if err != nil {
		return "", err
	}

	systemPrompt := chat.BuildSystemPrompt(m.Template(), m.Session())
	if stage := m.CurrentStage(); stage != nil {
		systemPrompt += "\n" + chat.BuildStagePrompt(stage)
	}

	return client.Complete(ctx, systemPrompt, m.Session().Messages)
}

func (s *Service) getChatClient() (*chat.Client, error) {
	if s.chatClient != nil {
		return s.chatClient, nil
	}

	client, err := chat.NewClient(chat.Config{
		APIKey:      s.cfg.OpenAI.APIKey,
		Model:       s.cfg.OpenAI.Model,
		BaseURL:     s.cfg.OpenAI.BaseURL,
		Temperature: s.cfg.OpenAI.Temperature,
		MaxTokens:   s.cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	s.chatClient = client
	return client, nil
}

// HandleUserMessage advances the guided conversation with one user message.
// Advance requests skip the current stage; everything else is captured into
// the stage's answers via the extraction heuristics. The returned reply is a
// locally generated acknowledgment; interfaces that talk to the completion
// API call Chat with the transcript instead.
func (s *Service) HandleUserMessage(m *session.Manager, text string) (string, error) {
	if m.Complete() {
		return "", errors.ValidationError("the conversation is already complete; finalize to export")
	}

	m.AppendMessage(models.RoleUser, text)

	if chat.WantsAdvance(text) {
		if err := m.SkipStage(); err != nil {
			return "", err
		}
	} else {
		stage := m.CurrentStage()
		data := chat.ExtractStageData(stage, text)
		if err := m.RecordAnswer(data); err != nil {
			return "", err
		}
	}

	var reply string
	if next := m.CurrentStage(); next != nil {
		done, total := m.Progress()
		reply = fmt.Sprintf("Captured. %d of %d stages complete.\n\n%s",
			done, total, chat.StageIntro(next, m.Session().CurrentStage, total))
	} else {
		reply = "All stages are complete. Provide a project name to finalize the export."
	}
	m.AppendMessage(models.RoleAssistant, reply)
	return reply, nil
}
