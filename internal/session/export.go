package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/serbantica/Chat-Assistant/internal/models"
)

// Export is the final JSON document a finished conversation produces. It is
// the deliverable the whole system exists to build: the per-stage answers
// plus a completion summary and follow-up guidance.
type Export struct {
	ProjectName  string `json:"project_name"`
	TemplateID   string `json:"template_type"`
	TemplateName string `json:"template_name"`

	Configuration map[string]map[string]interface{} `json:"json_config"`

	CompletionStatus CompletionStatus `json:"completion_status"`
	NextSteps        []string         `json:"next_steps"`
	Recommendations  []string         `json:"recommendations"`

	Metadata ExportMetadata `json:"metadata"`
}

// CompletionStatus summarizes how much of the framework was covered
type CompletionStatus struct {
	TotalStages     int      `json:"total_stages"`
	CompletedStages int      `json:"completed_stages"`
	CompletionRate  float64  `json:"completion_rate"`
	Complete        bool     `json:"complete"`
	MissingStages   []string `json:"missing_stages,omitempty"`
}

// ExportMetadata carries provenance for the export file
type ExportMetadata struct {
	CreatedDate   time.Time `json:"created_date"`
	CompletedDate time.Time `json:"completed_date"`
	GeneratorName string    `json:"generator"`
}

// BuildExport assembles the export document from a session and its template
func BuildExport(tmpl *models.Template, sess *models.Session) *Export {
	total := len(tmpl.Stages)
	completed := 0
	var missing []string
	for _, stage := range tmpl.Stages {
		if sess.StageCompleted(stage.Key) {
			completed++
		} else {
			missing = append(missing, stage.Title)
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total)
	}

	status := CompletionStatus{
		TotalStages:     total,
		CompletedStages: completed,
		CompletionRate:  rate,
		Complete:        completed == total,
		MissingStages:   missing,
	}

	return &Export{
		ProjectName:      sess.ProjectName,
		TemplateID:       sess.TemplateID,
		TemplateName:     sess.TemplateName,
		Configuration:    sess.Answers,
		CompletionStatus: status,
		NextSteps:        nextSteps(status),
		Recommendations:  recommendations(status, sess),
		Metadata: ExportMetadata{
			CreatedDate:   sess.CreatedAt,
			CompletedDate: sess.LastUpdated,
			GeneratorName: "chat-assistant",
		},
	}
}

func nextSteps(status CompletionStatus) []string {
	if status.Complete {
		return []string{
			"Review the generated configuration with your team",
			"Share the export with stakeholders for sign-off",
			"Use the configuration to kick off implementation planning",
		}
	}

	steps := make([]string, 0, len(status.MissingStages)+1)
	for _, title := range status.MissingStages {
		steps = append(steps, fmt.Sprintf("Complete the '%s' stage", title))
	}
	steps = append(steps, "Resume the session to finish the remaining stages")
	return steps
}

func recommendations(status CompletionStatus, sess *models.Session) []string {
	var recs []string

	if !status.Complete {
		recs = append(recs, fmt.Sprintf("Only %d of %d stages are complete; the configuration may miss important context",
			status.CompletedStages, status.TotalStages))
	}

	keys := make([]string, 0, len(sess.Answers))
	for key := range sess.Answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if len(sess.Answers[key]) == 0 {
			recs = append(recs, fmt.Sprintf("Stage '%s' was completed without captured data; revisit it for detail", key))
		}
	}

	if status.Complete && len(recs) == 0 {
		recs = append(recs, "All stages captured; validate assumptions with stakeholders before committing resources")
	}
	return recs
}
