package chat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/serbantica/Chat-Assistant/internal/models"
)

// advancePhrases signal the user wants to move to the next stage. Matched as
// substrings of the lowercased message.
var advancePhrases = []string{
	"next stage",
	"next step",
	"move on",
	"let's continue",
	"lets continue",
	"proceed",
	"that's all",
	"thats all",
	"nothing to add",
	"looks good",
	"i'm done",
	"im done",
	"ready to move",
}

// advanceWords are matched as whole messages only; "done" inside a longer
// sentence usually describes the work, not the stage.
var advanceWords = []string{"next", "continue", "done", "skip", "ok", "yes"}

// WantsAdvance reports whether a user message asks to move to the next stage
func WantsAdvance(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}

	for _, phrase := range advancePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	trimmed := strings.Trim(lower, ".!? ")
	for _, word := range advanceWords {
		if trimmed == word {
			return true
		}
	}
	return false
}

var (
	urgencyRe  = regexp.MustCompile(`(?i)\b(critical|urgent|high|medium|moderate|low)\b`)
	budgetRe   = regexp.MustCompile(`(?i)[$€£]\s?[\d,]+(?:\.\d+)?\s?[kmb]?|\b[\d,]+(?:\.\d+)?\s?(?:thousand|million|billion|k|usd|eur)\b`)
	timelineRe = regexp.MustCompile(`(?i)\b(?:\d+\s*(?:days?|weeks?|months?|quarters?|years?)|q[1-4]\s*\d{4}|by\s+(?:january|february|march|april|may|june|july|august|september|october|november|december)[a-z]*\s*\d*)\b`)
	numberRe   = regexp.MustCompile(`\b\d+\b`)
)

// ExtractStageData maps a free-text answer onto the stage's JSON structure
// using field-name heuristics. It is a best-effort first pass; the user can
// refine the captured values by continuing the conversation. Fields the text
// gives no signal for are left out rather than filled with guesses.
func ExtractStageData(stage *models.Stage, text string) map[string]interface{} {
	text = strings.TrimSpace(text)
	data := make(map[string]interface{})
	if text == "" {
		return data
	}

	// Walk fields in a fixed order so the primary-field fallback is stable.
	fields := make([]string, 0, len(stage.JSONSchema))
	for field := range stage.JSONSchema {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	primaryTaken := false
	for _, field := range fields {
		shape := stage.JSONSchema[field]
		lowerField := strings.ToLower(field)

		switch {
		case isListShape(shape):
			if items := listItems(text); len(items) > 0 {
				data[field] = items
			}

		case strings.Contains(lowerField, "urgency") || strings.Contains(lowerField, "priority"):
			if m := urgencyRe.FindString(text); m != "" {
				data[field] = normalizeUrgency(m)
			}

		case strings.Contains(lowerField, "budget") || strings.Contains(lowerField, "cost"):
			if m := budgetRe.FindString(text); m != "" {
				data[field] = strings.TrimSpace(m)
			}

		case strings.Contains(lowerField, "timeline") || strings.Contains(lowerField, "deadline") ||
			strings.Contains(lowerField, "duration"):
			if m := timelineRe.FindString(text); m != "" {
				data[field] = strings.TrimSpace(m)
			}

		case strings.Contains(lowerField, "size") || strings.Contains(lowerField, "count") ||
			strings.Contains(lowerField, "number"):
			if m := numberRe.FindString(text); m != "" {
				if n, err := strconv.Atoi(m); err == nil {
					data[field] = n
				}
			}

		default:
			// The first plain string field receives the full answer.
			if !primaryTaken {
				data[field] = text
				primaryTaken = true
			}
		}
	}

	return data
}

// isListShape reports whether the schema declares an array field
func isListShape(shape interface{}) bool {
	switch v := shape.(type) {
	case []interface{}:
		return true
	case string:
		return strings.HasPrefix(strings.ToLower(v), "array") || strings.HasPrefix(strings.ToLower(v), "list")
	default:
		return false
	}
}

// listItems splits an answer into list entries. Line-based bullets win; a
// single line falls back to comma or semicolon separation.
func listItems(text string) []string {
	var items []string

	lines := strings.Split(text, "\n")
	if len(lines) > 1 {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			line = strings.TrimLeft(line, "-*• \t")
			line = strings.TrimSpace(line)
			if line != "" {
				items = append(items, line)
			}
		}
		if len(items) > 1 {
			return items
		}
		items = items[:0]
	}

	sep := ","
	if strings.Contains(text, ";") {
		sep = ";"
	}
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func normalizeUrgency(m string) string {
	switch strings.ToLower(m) {
	case "critical", "urgent":
		return "critical"
	case "high":
		return "high"
	case "medium", "moderate":
		return "medium"
	default:
		return "low"
	}
}
