// Package cli provides the headless command-line interface: listing,
// inspecting and validating templates, and managing saved sessions without
// entering the TUI.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/serbantica/Chat-Assistant/internal/clipboard"
	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/renderer"
	"github.com/serbantica/Chat-Assistant/internal/service"
	"github.com/serbantica/Chat-Assistant/internal/session"
)

// CLI provides headless command-line interface functionality
type CLI struct {
	service *service.Service
	errors  *errors.CLIErrorHandler
}

// NewCLI creates a new CLI instance
func NewCLI(svc *service.Service, verbose bool) *CLI {
	return &CLI{
		service: svc,
		errors:  errors.NewCLIErrorHandler(verbose),
	}
}

// ExecuteCommand processes a CLI command and returns the result
func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	var err error
	switch command {
	case "list", "ls":
		err = c.listTemplates(commandArgs)
	case "show", "get":
		err = c.showTemplate(commandArgs)
	case "search":
		err = c.searchTemplates(commandArgs)
	case "validate":
		err = c.validateTemplates(commandArgs)
	case "sessions":
		err = c.listSessions(commandArgs)
	case "session":
		err = c.showSession(commandArgs)
	case "delete", "rm":
		err = c.deleteSession(commandArgs)
	case "export":
		err = c.exportSession(commandArgs)
	case "copy":
		err = c.copyTemplate(commandArgs)
	case "reload":
		err = c.reload(commandArgs)
	case "help":
		err = c.printUsage()
	default:
		err = errors.CommandNotFoundError(command)
	}

	if err != nil {
		return c.errors.HandleError(err)
	}
	return nil
}

// parseFormat scans args for --format/-f and returns the remaining args
func parseFormat(args []string) (format string, rest []string) {
	for i := 0; i < len(args); i++ {
		if (args[i] == "--format" || args[i] == "-f") && i+1 < len(args) {
			format = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return format, rest
}

func (c *CLI) listTemplates(args []string) error {
	format, _ := parseFormat(args)
	return c.printTemplates(c.service.ListTemplates(), format)
}

func (c *CLI) searchTemplates(args []string) error {
	format, rest := parseFormat(args)
	if len(rest) == 0 {
		return errors.InvalidCommandError("search", "a query is required")
	}

	query := strings.Join(rest, " ")
	return c.printTemplates(c.service.SearchTemplates(query), format)
}

func (c *CLI) printTemplates(templates []*models.Template, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(templates, "", "  ")
		if err != nil {
			return errors.InternalError("failed to serialize templates")
		}
		fmt.Println(string(data))
		return nil
	}

	if len(templates) == 0 {
		fmt.Println("No templates found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTAGES\tDESCRIPTION")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Name, len(t.Stages), t.Summary)
	}
	return w.Flush()
}

func (c *CLI) showTemplate(args []string) error {
	format, rest := parseFormat(args)
	if len(rest) == 0 {
		return errors.InvalidCommandError("show", "a template id is required")
	}

	tmpl, err := c.service.GetTemplate(rest[0])
	if err != nil {
		return err
	}

	if format == "json" {
		data, err := json.MarshalIndent(tmpl, "", "  ")
		if err != nil {
			return errors.InternalError("failed to serialize template")
		}
		fmt.Println(string(data))
		return nil
	}

	overview := renderer.TemplateOverview(tmpl)
	if md, err := renderer.NewMarkdown(100); err == nil {
		fmt.Print(md.Render(overview))
	} else {
		fmt.Print(overview)
	}

	if adv := c.service.Registry().Advisory(tmpl.ID); adv != nil {
		fmt.Println(c.errors.FormatError(adv))
	}
	return nil
}

func (c *CLI) validateTemplates(args []string) error {
	format, _ := parseFormat(args)
	reports := c.service.ValidateTemplates()

	if format == "json" {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return errors.InternalError("failed to serialize reports")
		}
		fmt.Println(string(data))
		return nil
	}

	invalid := 0
	for _, r := range reports {
		switch {
		case !r.Valid():
			invalid++
			fmt.Printf("❌ %s\n", r.Source)
			for _, issue := range r.Errors {
				fmt.Printf("   error: %s\n", issue.Message)
			}
		case !r.Clean():
			fmt.Printf("⚠️  %s\n", r.Source)
		default:
			fmt.Printf("✅ %s\n", r.Source)
		}
		for _, issue := range r.Warnings {
			if issue.StageKey != "" {
				fmt.Printf("   warning [%s]: %s\n", issue.StageKey, issue.Message)
			} else {
				fmt.Printf("   warning: %s\n", issue.Message)
			}
		}
	}

	fmt.Printf("\n%d template(s) checked, %d invalid\n", len(reports), invalid)
	if invalid > 0 {
		return errors.ValidationError(fmt.Sprintf("%d template(s) failed validation", invalid))
	}
	return nil
}

func (c *CLI) listSessions(args []string) error {
	format, _ := parseFormat(args)

	infos, err := c.service.ListSessions()
	if err != nil {
		return err
	}

	if format == "json" {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return errors.InternalError("failed to serialize sessions")
		}
		fmt.Println(string(data))
		return nil
	}

	if len(infos) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATE\tUPDATED")
	for _, info := range infos {
		state := "final"
		if info.Temporary {
			state = "in progress"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Filename, state, info.ModTime.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (c *CLI) showSession(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("session", "a session filename is required")
	}

	m, err := c.service.ResumeSession(args[0])
	if err != nil {
		return err
	}

	summary := renderer.SessionSummary(m.Template(), m.Session())
	if md, err := renderer.NewMarkdown(100); err == nil {
		fmt.Print(md.Render(summary))
	} else {
		fmt.Print(summary)
	}
	return nil
}

func (c *CLI) deleteSession(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("delete", "a session filename is required")
	}
	if err := c.service.DeleteSession(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// exportSession builds the export document for a saved session and prints it,
// or finalizes it to disk when --name is given.
func (c *CLI) exportSession(args []string) error {
	var name string
	var rest []string
	for i := 0; i < len(args); i++ {
		if (args[i] == "--name" || args[i] == "-n") && i+1 < len(args) {
			name = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	if len(rest) == 0 {
		return errors.InvalidCommandError("export", "a session filename is required")
	}

	m, err := c.service.ResumeSession(rest[0])
	if err != nil {
		return err
	}

	if name != "" {
		filename, err := m.Finalize(name)
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", filename)
		return nil
	}

	export := session.BuildExport(m.Template(), m.Session())
	out, err := renderer.ExportJSON(export)
	if err != nil {
		return errors.InternalError("failed to serialize export")
	}
	fmt.Println(out)
	return nil
}

func (c *CLI) copyTemplate(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("copy", "a template id is required")
	}

	tmpl, err := c.service.GetTemplate(args[0])
	if err != nil {
		return err
	}

	if err := clipboard.Copy(renderer.TemplateOverview(tmpl)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to copy to clipboard")
	}
	fmt.Println("Copied to clipboard!")
	return nil
}

func (c *CLI) reload(_ []string) error {
	if err := c.service.ReloadTemplates(); err != nil {
		return err
	}
	fmt.Printf("Reloaded %d template(s)\n", len(c.service.ListTemplates()))
	return nil
}

func (c *CLI) printUsage() error {
	fmt.Println(`chat-assistant - template-driven conversational assistant

Usage:
  chat-assistant                    Launch the interactive TUI
  chat-assistant <command> [args]   Run a headless command

Commands:
  list, ls [--format json]          List available templates
  show <id> [--format json]         Show a template's stages
  search <query>                    Fuzzy-search templates
  validate [--format json]          Check templates for authoring problems
  sessions [--format json]          List saved sessions and exports
  session <file>                    Show a saved session's progress
  export <file> [--name <project>]  Print or finalize a session export
  delete, rm <file>                 Delete a saved session
  copy <id>                         Copy a template overview to the clipboard
  reload                            Rescan the templates directory
  help                              Show this help

Environment:
  OPENAI_API_KEY       API key for the chat assistant
  OPENAI_MODEL         Completion model (default gpt-4o-mini)
  CHAT_ASSISTANT_DIR   Base directory (default ~/.chat-assistant)`)
	return nil
}
