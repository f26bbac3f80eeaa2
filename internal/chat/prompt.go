package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/serbantica/Chat-Assistant/internal/models"
)

// BuildSystemPrompt produces the standing instruction for the whole
// conversation: who the assistant is, what framework it walks through and the
// rules it must follow while collecting stage data.
func BuildSystemPrompt(tmpl *models.Template, sess *models.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a consultant guiding the user through the %q framework", tmpl.Name)
	if tmpl.Summary != "" {
		fmt.Fprintf(&b, " (%s)", tmpl.Summary)
	}
	b.WriteString(".\n\n")

	b.WriteString("The framework has these stages, in order:\n")
	for i, stage := range tmpl.Stages {
		marker := " "
		switch {
		case sess != nil && sess.StageCompleted(stage.Key):
			marker = "x"
		case sess != nil && i == sess.CurrentStage:
			marker = ">"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, marker, stage.Title)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Work on one stage at a time and keep the user focused on it.\n")
	b.WriteString("- Ask the stage's follow-up questions when the user's answer is thin.\n")
	b.WriteString("- Summarize what you captured before suggesting the user move on.\n")
	b.WriteString("- Be concise and concrete; avoid filler.\n")

	return b.String()
}

// BuildStagePrompt produces the per-stage context injected when a stage
// begins: the prompt to put to the user, examples to offer and the JSON
// fields the stage must fill.
func BuildStagePrompt(stage *models.Stage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current stage: %s\n\n", stage.Title)
	fmt.Fprintf(&b, "Put this question to the user:\n%s\n", stage.Prompt)

	if len(stage.Examples) > 0 {
		b.WriteString("\nExamples you may offer:\n")
		for _, ex := range stage.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}

	if len(stage.FollowUpQuestions) > 0 {
		b.WriteString("\nFollow-up questions for thin answers:\n")
		for _, q := range stage.FollowUpQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	if len(stage.JSONSchema) > 0 {
		if schema, err := json.MarshalIndent(stage.JSONSchema, "", "  "); err == nil {
			b.WriteString("\nCapture the user's answers into this structure:\n")
			b.Write(schema)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// StageIntro formats the message shown to the user when a stage begins
func StageIntro(stage *models.Stage, index, total int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Stage %d of %d: %s**\n\n%s\n", index+1, total, stage.Title, stage.Prompt)

	if len(stage.Examples) > 0 {
		b.WriteString("\nFor example:\n")
		for _, ex := range stage.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}

	return b.String()
}
