// Package renderer formats templates and exports for terminal display.
// Markdown goes through glamour with style selection matched to the
// terminal's color capabilities and background.
package renderer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/session"
)

// Markdown renders markdown for the terminal
type Markdown struct {
	tr *glamour.TermRenderer
}

// NewMarkdown creates a terminal markdown renderer with the given word wrap
func NewMarkdown(wordWrap int) (*Markdown, error) {
	tr, err := createTermRenderer(wordWrap)
	if err != nil {
		return nil, err
	}
	return &Markdown{tr: tr}, nil
}

// createTermRenderer picks a glamour style for the terminal's capabilities
func createTermRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()

	var styleOption glamour.TermRendererOption
	switch {
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// Render renders markdown, falling back to the raw text on failure
func (m *Markdown) Render(text string) string {
	out, err := m.tr.Render(text)
	if err != nil {
		return text
	}
	return out
}

// TemplateOverview builds the markdown document shown by the show command
func TemplateOverview(tmpl *models.Template) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", tmpl.Name)
	if tmpl.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", tmpl.Summary)
	}

	fmt.Fprintf(&b, "- **ID**: `%s`\n", tmpl.ID)
	if tmpl.Category != "" {
		fmt.Fprintf(&b, "- **Category**: %s\n", tmpl.Category)
	}
	if tmpl.Version != "" {
		fmt.Fprintf(&b, "- **Version**: %s\n", tmpl.Version)
	}
	if tmpl.Author != "" {
		fmt.Fprintf(&b, "- **Author**: %s\n", tmpl.Author)
	}
	fmt.Fprintf(&b, "- **Stages**: %d\n\n", len(tmpl.Stages))

	for i, stage := range tmpl.Stages {
		fmt.Fprintf(&b, "## Stage %d: %s\n\n", i+1, stage.Title)
		fmt.Fprintf(&b, "%s\n", stage.Prompt)

		if len(stage.Examples) > 0 {
			b.WriteString("\nExamples:\n")
			for _, ex := range stage.Examples {
				fmt.Fprintf(&b, "- %s\n", ex)
			}
		}
		if len(stage.FollowUpQuestions) > 0 {
			b.WriteString("\nFollow-up questions:\n")
			for _, q := range stage.FollowUpQuestions {
				fmt.Fprintf(&b, "- %s\n", q)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// SessionSummary builds a markdown progress summary for a saved session
func SessionSummary(tmpl *models.Template, sess *models.Session) string {
	var b strings.Builder

	name := sess.ProjectName
	if name == "" {
		name = sess.PendingProjectName
	}
	if name == "" {
		name = sess.UseCaseName
	}
	if name == "" {
		name = "(unnamed)"
	}

	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Template: %s\n\n", sess.TemplateName)

	for i, stage := range tmpl.Stages {
		marker := " "
		if sess.StageCompleted(stage.Key) {
			marker = "x"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, marker, stage.Title)
	}

	return b.String()
}

// ExportJSON pretty-prints an export document
func ExportJSON(export *session.Export) (string, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
