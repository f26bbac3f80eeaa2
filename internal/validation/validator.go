// Package validation checks parsed templates for authoring problems that the
// parser deliberately tolerates. The parser rejects only structural faults; a
// template that parses can still be a poor conversation, with too few examples
// to guide the user or a stage count that drifted from the document. The
// validator turns those into a per-file report for the validate command.
package validation

import (
	"fmt"
	"sort"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/registry"
)

// Authoring thresholds. Below these a stage still works but gives the user
// little to go on.
const (
	minExamples  = 3
	minFollowUps = 2
)

// Issue is one finding about a template
type Issue struct {
	StageKey string `json:"stage_key,omitempty"`
	Message  string `json:"message"`
}

// Report collects the findings for one template file
type Report struct {
	Source     string  `json:"source"`
	TemplateID string  `json:"template_id,omitempty"`
	Errors     []Issue `json:"errors,omitempty"`
	Warnings   []Issue `json:"warnings,omitempty"`
}

// Valid reports whether the template is usable (warnings allowed)
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Clean reports whether the template has no findings at all
func (r *Report) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// ValidateTemplate checks one parsed template for authoring issues
func ValidateTemplate(tmpl *models.Template) *Report {
	report := &Report{
		Source:     tmpl.FilePath,
		TemplateID: tmpl.ID,
	}

	if tmpl.DeclaredStages != len(tmpl.Stages) {
		report.Warnings = append(report.Warnings, Issue{
			Message: fmt.Sprintf("metadata declares %d stages but document has %d",
				tmpl.DeclaredStages, len(tmpl.Stages)),
		})
	}
	if tmpl.Summary == "" {
		report.Warnings = append(report.Warnings, Issue{
			Message: "metadata has no description",
		})
	}

	for _, stage := range tmpl.Stages {
		if n := len(stage.Examples); n < minExamples {
			report.Warnings = append(report.Warnings, Issue{
				StageKey: stage.Key,
				Message:  fmt.Sprintf("only %d example(s); %d or more recommended", n, minExamples),
			})
		}
		if n := len(stage.FollowUpQuestions); n < minFollowUps {
			report.Warnings = append(report.Warnings, Issue{
				StageKey: stage.Key,
				Message:  fmt.Sprintf("only %d follow-up question(s); %d or more recommended", n, minFollowUps),
			})
		}
		if len(stage.JSONSchema) == 0 {
			report.Warnings = append(report.Warnings, Issue{
				StageKey: stage.Key,
				Message:  "JSON structure is empty; the stage will capture nothing",
			})
		}
	}

	return report
}

// ValidateAll produces a report for every file the registry knows about,
// including the ones that failed to parse. Reports are sorted by source path.
func ValidateAll(reg *registry.Registry) []*Report {
	var reports []*Report

	for _, tmpl := range reg.List() {
		reports = append(reports, ValidateTemplate(tmpl))
	}

	for source, err := range reg.Problems() {
		appErr := errors.GetAppError(err)
		reports = append(reports, &Report{
			Source: source,
			Errors: []Issue{{Message: appErr.Message}},
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Source < reports[j].Source
	})
	return reports
}
