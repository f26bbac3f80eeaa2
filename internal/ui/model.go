// Package ui implements the interactive terminal interface: a template
// picker, the guided chat view with stage progress, and the finalize flow
// that names the project and writes the export.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/serbantica/Chat-Assistant/internal/chat"
	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/renderer"
	"github.com/serbantica/Chat-Assistant/internal/service"
	"github.com/serbantica/Chat-Assistant/internal/session"
)

type viewState int

const (
	viewPicker viewState = iota
	viewChat
	viewFinalize
	viewPreview
)

// Messages for async operations

type assistantReplyMsg struct {
	reply string
	err   error
}

type exportDoneMsg struct {
	filename string
	err      error
}

// Model is the bubbletea model for the whole TUI
type Model struct {
	svc   *service.Service
	state viewState

	picker    list.Model
	chatView  viewport.Model
	input     textarea.Model
	nameInput textinput.Model
	spin      spinner.Model

	markdown *renderer.Markdown
	manager  *session.Manager

	waiting bool
	status  string
	errMsg  string

	width  int
	height int
	ready  bool
}

// NewModel creates the TUI model over the shared service
func NewModel(svc *service.Service) *Model {
	initializeStyles()

	items := templateItems(svc.ListTemplates())
	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 80, 20)
	l.Title = "Choose a conversation framework"
	l.SetShowStatusBar(false)

	ta := textarea.New()
	ta.Placeholder = "Type your answer (enter to send, esc to go back)"
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "Project name"
	ti.CharLimit = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	md, err := renderer.NewMarkdown(78)
	if err != nil {
		md = nil
	}

	return &Model{
		svc:       svc,
		state:     viewPicker,
		picker:    l,
		chatView:  vp,
		input:     ta,
		nameInput: ti,
		spin:      sp,
		markdown:  md,
	}
}

func templateItems(templates []*models.Template) []list.Item {
	items := make([]list.Item, 0, len(templates))
	for _, t := range templates {
		items = append(items, *t)
	}
	return items
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.picker.SetSize(msg.Width-4, msg.Height-4)
		m.chatView.Width = msg.Width - 4
		m.chatView.Height = msg.Height - 10
		m.input.SetWidth(msg.Width - 6)
		if md, err := renderer.NewMarkdown(m.chatView.Width - 2); err == nil {
			m.markdown = md
		}
		m.refreshChatView()
		return m, nil

	case assistantReplyMsg:
		m.waiting = false
		if msg.err != nil {
			m.errMsg = errors.NewTUIErrorHandler().FormatError(msg.err)
		} else if m.manager != nil {
			m.manager.AppendMessage(models.RoleAssistant, msg.reply)
		}
		m.refreshChatView()
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.errMsg = errors.NewTUIErrorHandler().FormatError(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("Exported to %s", msg.filename)
		m.manager = nil
		m.state = viewPicker
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveComponent(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.state {
	case viewPicker:
		return m.handlePickerKey(msg)
	case viewChat:
		return m.handleChatKey(msg)
	case viewFinalize:
		return m.handleFinalizeKey(msg)
	case viewPreview:
		return m.handlePreviewKey(msg)
	}
	return m, nil
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't steal keys while the list's filter input is active.
	if m.picker.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "r":
		if err := m.svc.ReloadTemplates(); err != nil {
			m.errMsg = errors.NewTUIErrorHandler().FormatError(err)
		} else {
			m.picker.SetItems(templateItems(m.svc.ListTemplates()))
			m.status = "Templates reloaded"
		}
		return m, nil

	case "enter":
		item, ok := m.picker.SelectedItem().(models.Template)
		if !ok {
			return m, nil
		}
		mgr, err := m.svc.StartSession(item.ID)
		if err != nil {
			m.errMsg = errors.NewTUIErrorHandler().FormatError(err)
			return m, nil
		}
		m.startConversation(mgr)
		return m, textarea.Blink
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

// startConversation switches to the chat view and greets the user with the
// first stage's intro.
func (m *Model) startConversation(mgr *session.Manager) {
	m.manager = mgr
	m.state = viewChat
	m.errMsg = ""
	m.status = ""
	m.input.Reset()

	tmpl := mgr.Template()
	if stage := mgr.CurrentStage(); stage != nil {
		_, total := mgr.Progress()
		intro := fmt.Sprintf("Welcome to the **%s** framework.\n\n%s",
			tmpl.Name, chat.StageIntro(stage, mgr.Session().CurrentStage, total))
		mgr.AppendMessage(models.RoleAssistant, intro)
	}
	m.refreshChatView()
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Progress is already auto-saved; just leave.
		m.state = viewPicker
		m.manager = nil
		m.status = "Session auto-saved"
		return m, nil

	case tea.KeyCtrlE:
		m.showPreview()
		return m, nil

	case tea.KeyCtrlS:
		m.state = viewFinalize
		m.nameInput.SetValue(m.manager.Session().PendingProjectName)
		m.nameInput.Focus()
		return m, textinput.Blink

	case tea.KeyEnter:
		if m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m.submitMessage(text)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) submitMessage(text string) (tea.Model, tea.Cmd) {
	m.errMsg = ""

	if m.manager.Complete() {
		// The conversation is over; treat input as the project name.
		m.state = viewFinalize
		m.nameInput.SetValue(text)
		m.nameInput.Focus()
		return m, textinput.Blink
	}

	if _, err := m.svc.HandleUserMessage(m.manager, text); err != nil {
		m.errMsg = errors.NewTUIErrorHandler().FormatError(err)
		m.refreshChatView()
		return m, nil
	}
	m.refreshChatView()

	if m.svc.ChatEnabled() && !m.manager.Complete() {
		m.waiting = true
		return m, tea.Batch(m.spin.Tick, m.requestAssistantReply())
	}
	return m, nil
}

// requestAssistantReply asks the completion API to elaborate on the current
// stage, beyond the locally generated acknowledgment.
func (m *Model) requestAssistantReply() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		reply, err := m.svc.Chat(ctx, mgr)
		return assistantReplyMsg{reply: reply, err: err}
	}
}

func (m *Model) handleFinalizeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = viewChat
		return m, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		mgr := m.manager
		return m, func() tea.Msg {
			filename, err := mgr.Finalize(name)
			return exportDoneMsg{filename: filename, err: err}
		}
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = viewChat
		m.refreshChatView()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(msg)
	return m, cmd
}

func (m *Model) showPreview() {
	export := session.BuildExport(m.manager.Template(), m.manager.Session())
	out, err := renderer.ExportJSON(export)
	if err != nil {
		m.errMsg = "failed to build export preview"
		return
	}
	m.state = viewPreview
	m.chatView.SetContent(out)
	m.chatView.GotoTop()
}

func (m *Model) updateActiveComponent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case viewPicker:
		m.picker, cmd = m.picker.Update(msg)
	case viewChat:
		m.input, cmd = m.input.Update(msg)
	case viewFinalize:
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

// refreshChatView rebuilds the transcript content
func (m *Model) refreshChatView() {
	if m.manager == nil {
		return
	}

	var b strings.Builder
	for _, msg := range m.manager.Session().Messages {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString(StyleUserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		case models.RoleAssistant:
			b.WriteString(StyleAssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			if m.markdown != nil {
				b.WriteString(m.markdown.Render(msg.Content))
			} else {
				b.WriteString(msg.Content)
			}
			b.WriteString("\n")
		}
	}

	m.chatView.SetContent(b.String())
	m.chatView.GotoBottom()
}

// View implements tea.Model
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.state {
	case viewPicker:
		return m.viewPicker()
	case viewChat:
		return m.viewChat()
	case viewFinalize:
		return m.viewFinalize()
	case viewPreview:
		return m.viewPreview()
	}
	return ""
}

func (m *Model) viewPicker() string {
	var b strings.Builder
	b.WriteString(m.picker.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(StyleSuccess.Render(m.status))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(StyleError.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(StyleStatusBar.Render("enter: start · /: filter · r: reload · q: quit"))
	return b.String()
}

func (m *Model) viewChat() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.manager.Template().Name))
	b.WriteString("\n")
	b.WriteString(m.progressLine())
	b.WriteString("\n\n")

	b.WriteString(m.chatView.View())
	b.WriteString("\n")

	if m.waiting {
		b.WriteString(m.spin.View())
		b.WriteString(StyleMuted.Render(" thinking..."))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(StyleError.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(StyleInputBorder.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(StyleStatusBar.Render("enter: send · ctrl+e: preview · ctrl+s: finalize · esc: back"))
	return b.String()
}

// progressLine renders one marker per stage
func (m *Model) progressLine() string {
	sess := m.manager.Session()
	tmpl := m.manager.Template()

	parts := make([]string, 0, len(tmpl.Stages))
	for i, stage := range tmpl.Stages {
		label := fmt.Sprintf("%d %s", i+1, stage.Title)
		switch {
		case sess.StageCompleted(stage.Key):
			parts = append(parts, StyleProgressDone.Render("✓ "+label))
		case i == sess.CurrentStage:
			parts = append(parts, StyleProgressCurrent.Render("▶ "+label))
		default:
			parts = append(parts, StyleProgressPending.Render("  "+label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, StyleMuted.Render("  |  ")))
}

func (m *Model) viewFinalize() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Finalize project"))
	b.WriteString("\n\n")

	done, total := m.manager.Progress()
	if done < total {
		b.WriteString(StyleWarning.Render(
			fmt.Sprintf("⚠️  %d of %d stages complete; the export will note the gaps", done, total)))
		b.WriteString("\n\n")
	}

	b.WriteString("Name this project to write the final export:\n\n")
	b.WriteString(StyleInputBorder.Render(m.nameInput.View()))
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(StyleError.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(StyleStatusBar.Render("enter: export · esc: back to chat"))
	return b.String()
}

func (m *Model) viewPreview() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Export preview"))
	b.WriteString("\n\n")
	b.WriteString(m.chatView.View())
	b.WriteString("\n")
	b.WriteString(StyleStatusBar.Render("esc: back to chat"))
	return b.String()
}

// Run starts the TUI
func Run(svc *service.Service) error {
	p := tea.NewProgram(NewModel(svc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
