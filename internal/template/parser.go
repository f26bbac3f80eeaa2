// Package template parses conversation framework documents.
//
// A framework document is markdown following a fixed convention: a metadata
// section holding one fenced JSON block, then one or more "### Stage N: Title"
// sections, each carrying **Key**, **Title**, **Prompt**, **Examples**,
// **Follow-up Questions** and **JSON Structure** labels. The parser is a
// scanner for these known landmarks, not a markdown document model: it is
// forgiving of surrounding prose but strict about the landmarks themselves,
// since a silently partial parse would corrupt the downstream JSON export.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
)

var (
	stageHeadingRe = regexp.MustCompile(`(?m)^### Stage (\d+):[ \t]*(.*)$`)
	fieldLabelRe   = regexp.MustCompile(`(?m)^\*\*(Key|Title|Prompt|Examples|Follow-up Questions|JSON Structure)\*\*:?`)
	backtickedRe   = regexp.MustCompile("`([^`\n]+)`")
)

// metadata mirrors the fenced JSON block of the metadata section
type metadata struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	StagesCount int    `json:"stages_count"`
}

// Parse converts a framework document into a Template.
//
// source identifies the document (typically its file name) and is attached to
// every error so the author can locate the fault. Construction is
// all-or-nothing for malformed metadata or stages. A stages_count that
// disagrees with the number of stage sections is advisory: Parse returns the
// fully populated Template together with a StageCountMismatch error, and the
// caller chooses the policy (errors.IsStageCountMismatch).
func Parse(source string, data []byte) (*models.Template, error) {
	text := string(data)

	headings := stageHeadingRe.FindAllStringSubmatchIndex(text, -1)

	metaRegion := text
	if len(headings) > 0 {
		metaRegion = text[:headings[0][0]]
	}

	meta, err := parseMetadata(source, metaRegion)
	if err != nil {
		return nil, err
	}

	if len(headings) == 0 {
		return nil, errors.NewAppError(errors.ErrCodeMalformedStage, "no stage sections found").
			WithContext("source", source)
	}

	tmpl := &models.Template{
		ID:             meta.TemplateID,
		Name:           meta.Name,
		Summary:        meta.Description,
		Category:       meta.Category,
		Version:        meta.Version,
		Author:         meta.Author,
		DeclaredStages: meta.StagesCount,
	}

	seenKeys := make(map[string]int, len(headings))
	for i, h := range headings {
		title := strings.TrimSpace(text[h[4]:h[5]])

		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		section := text[h[1]:end]

		stage, err := parseStage(source, i+1, title, section)
		if err != nil {
			return nil, err
		}

		if prev, dup := seenKeys[stage.Key]; dup {
			return nil, errors.MalformedStageError(source, i+1, title,
				fmt.Sprintf("duplicate stage key %q (already used by stage %d)", stage.Key, prev))
		}
		seenKeys[stage.Key] = i + 1

		tmpl.Stages = append(tmpl.Stages, stage)
	}

	if meta.StagesCount != len(tmpl.Stages) {
		return tmpl, errors.StageCountMismatchError(source, meta.StagesCount, len(tmpl.Stages))
	}

	return tmpl, nil
}

// ParseMetadata parses only the metadata section of a document. It is the
// cheap path for listing available frameworks without walking every stage.
func ParseMetadata(source string, data []byte) (*models.Template, error) {
	text := string(data)
	if loc := stageHeadingRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	meta, err := parseMetadata(source, text)
	if err != nil {
		return nil, err
	}

	return &models.Template{
		ID:             meta.TemplateID,
		Name:           meta.Name,
		Summary:        meta.Description,
		Category:       meta.Category,
		Version:        meta.Version,
		Author:         meta.Author,
		DeclaredStages: meta.StagesCount,
	}, nil
}

func parseMetadata(source, region string) (*metadata, error) {
	block, ok := fencedJSONBlock(region)
	if !ok {
		return nil, errors.MalformedMetadataError(source, "no fenced JSON metadata block found")
	}

	// Decode into a raw map first so absent keys can be told apart from
	// zero values.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, errors.MalformedMetadataError(source, fmt.Sprintf("metadata block is not valid JSON: %v", err)).
			WithDetails(err.Error())
	}

	for _, required := range []string{"template_id", "name", "stages_count"} {
		if _, present := raw[required]; !present {
			return nil, errors.MalformedMetadataError(source, fmt.Sprintf("missing required field %q", required))
		}
	}

	var meta metadata
	if err := json.Unmarshal([]byte(block), &meta); err != nil {
		return nil, errors.MalformedMetadataError(source, fmt.Sprintf("metadata field has wrong type: %v", err))
	}

	if strings.TrimSpace(meta.TemplateID) == "" {
		return nil, errors.MalformedMetadataError(source, "template_id is empty")
	}
	if strings.TrimSpace(meta.Name) == "" {
		return nil, errors.MalformedMetadataError(source, "name is empty")
	}

	return &meta, nil
}

func parseStage(source string, index int, title, section string) (*models.Stage, error) {
	fields := sliceFields(section)

	keySpan, ok := fields["Key"]
	if !ok {
		return nil, errors.MalformedStageError(source, index, title, "missing Key label")
	}
	key := extractKey(keySpan)
	if key == "" {
		return nil, errors.MalformedStageError(source, index, title, "stage key is empty")
	}

	titleSpan, ok := fields["Title"]
	if !ok {
		return nil, errors.MalformedStageError(source, index, title, "missing Title label")
	}
	stageTitle := firstLine(titleSpan)
	if stageTitle == "" {
		return nil, errors.MalformedStageError(source, index, title, "stage title is empty")
	}

	promptSpan, ok := fields["Prompt"]
	if !ok {
		return nil, errors.MalformedStageError(source, index, title, "missing Prompt label")
	}
	prompt := strings.TrimSpace(promptSpan)
	if prompt == "" {
		return nil, errors.MalformedStageError(source, index, title, "stage prompt is empty")
	}

	schemaSpan, ok := fields["JSON Structure"]
	if !ok {
		return nil, errors.MalformedStageError(source, index, title, "missing JSON Structure label")
	}
	block, ok := fencedJSONBlock(schemaSpan)
	if !ok {
		return nil, errors.MalformedStageError(source, index, title, "JSON Structure has no fenced JSON block")
	}
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(block), &schema); err != nil {
		return nil, errors.MalformedStageError(source, index, title,
			fmt.Sprintf("JSON Structure block is not valid JSON: %v", err))
	}

	return &models.Stage{
		Key:               key,
		Title:             stageTitle,
		Prompt:            prompt,
		Examples:          bulletItems(fields["Examples"]),
		FollowUpQuestions: bulletItems(fields["Follow-up Questions"]),
		JSONSchema:        schema,
	}, nil
}

// sliceFields splits a stage section into label-delimited spans. Each label's
// content runs from the end of its marker to the start of the next recognized
// label, or the section boundary.
func sliceFields(section string) map[string]string {
	matches := fieldLabelRe.FindAllStringSubmatchIndex(section, -1)

	fields := make(map[string]string, len(matches))
	for i, m := range matches {
		label := section[m[2]:m[3]]
		end := len(section)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		// First occurrence wins; repeated labels are surrounding prose.
		if _, seen := fields[label]; !seen {
			fields[label] = section[m[1]:end]
		}
	}
	return fields
}

// extractKey pulls the backticked identifier out of a Key span
func extractKey(span string) string {
	if m := backtickedRe.FindStringSubmatch(span); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(firstLine(span))
}

// bulletItems extracts bulleted list entries in document order. A single
// leading decorative glyph (emoji and the like) is stripped from each item;
// the remaining text is preserved verbatim.
func bulletItems(span string) []string {
	var items []string
	for _, line := range strings.Split(span, "\n") {
		line = strings.TrimSpace(line)

		var item string
		switch {
		case strings.HasPrefix(line, "- "):
			item = line[2:]
		case strings.HasPrefix(line, "* "):
			item = line[2:]
		default:
			continue
		}

		item = stripDecorativeGlyph(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// stripDecorativeGlyph removes one leading symbol rune (plus any variation
// selector) and the whitespace after it. "🎯 Develop an app" → "Develop an app".
func stripDecorativeGlyph(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	if !unicode.Is(unicode.So, r) && !unicode.Is(unicode.Sk, r) {
		return s
	}
	s = s[size:]
	// Emoji are often followed by U+FE0F VARIATION SELECTOR-16.
	if r2, size2 := utf8.DecodeRuneInString(s); r2 == '️' {
		s = s[size2:]
	}
	return strings.TrimSpace(s)
}

func firstLine(span string) string {
	span = strings.TrimSpace(span)
	if i := strings.IndexByte(span, '\n'); i >= 0 {
		span = span[:i]
	}
	return strings.TrimSpace(span)
}

// fencedJSONBlock returns the contents of the first ```json fenced block in
// s, without the fence lines.
func fencedJSONBlock(s string) (string, bool) {
	const open = "```json"
	start := strings.Index(s, open)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
