package template

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/serbantica/Chat-Assistant/internal/errors"
)

const testDoc = `# Product Discovery Framework

## Template Metadata

` + "```json" + `
{
  "template_id": "product_discovery",
  "name": "Product Discovery",
  "description": "Guided discovery conversation for new product ideas",
  "category": "product",
  "version": "1.0",
  "author": "Platform Team",
  "stages_count": 3
}
` + "```" + `

## Conversation Stages

### Stage 1: Problem Definition
**Key**: ` + "`problem_definition`" + `
**Title**: Problem Definition
**Prompt**: What problem are you trying to solve, and who experiences it?

**Examples**:
- 🎯 Develop a new software application
- 🚀 Reduce onboarding time for new customers
- Improve internal reporting accuracy

**Follow-up Questions**:
- How often does this problem occur?
- What does it cost when it does?

**JSON Structure**:
` + "```json" + `
{
  "primary_problem": "string",
  "affected_users": ["string"],
  "urgency": "string"
}
` + "```" + `

### Stage 2: Stakeholders
**Key**: ` + "`stakeholders`" + `
**Title**: Stakeholder Mapping
**Prompt**: Who are the decision makers and who is affected by the outcome?

**Examples**:
- Engineering leadership and the support team
- ✅ External customers on the enterprise plan

**Follow-up Questions**:
- Who can veto this project?

**JSON Structure**:
` + "```json" + `
{
  "decision_makers": ["string"],
  "affected_parties": ["string"]
}
` + "```" + `

### Stage 3: Success Criteria
**Key**: ` + "`success_criteria`" + `
**Title**: Success Criteria
**Prompt**: How will you know the solution worked?

**Examples**:
- 📊 Support ticket volume drops by 30%

**Follow-up Questions**:
- What is the measurement window?

**JSON Structure**:
` + "```json" + `
{
  "metrics": ["string"],
  "measurement_window": "string"
}
` + "```" + `
`

func TestParseCompleteDocument(t *testing.T) {
	tmpl, err := Parse("test.md", []byte(testDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if tmpl.ID != "product_discovery" {
		t.Errorf("Expected ID 'product_discovery', got %q", tmpl.ID)
	}
	if tmpl.Name != "Product Discovery" {
		t.Errorf("Expected name 'Product Discovery', got %q", tmpl.Name)
	}
	if tmpl.DeclaredStages != 3 {
		t.Errorf("Expected declared stages 3, got %d", tmpl.DeclaredStages)
	}
	if len(tmpl.Stages) != 3 {
		t.Fatalf("Expected 3 stages, got %d", len(tmpl.Stages))
	}

	wantKeys := []string{"problem_definition", "stakeholders", "success_criteria"}
	for i, want := range wantKeys {
		if tmpl.Stages[i].Key != want {
			t.Errorf("Stage %d: expected key %q, got %q", i+1, want, tmpl.Stages[i].Key)
		}
	}

	first := tmpl.Stages[0]
	if first.Title != "Problem Definition" {
		t.Errorf("Expected title 'Problem Definition', got %q", first.Title)
	}
	if !strings.HasPrefix(first.Prompt, "What problem are you trying to solve") {
		t.Errorf("Unexpected prompt: %q", first.Prompt)
	}
	if len(first.FollowUpQuestions) != 2 {
		t.Errorf("Expected 2 follow-up questions, got %d", len(first.FollowUpQuestions))
	}
	if _, ok := first.JSONSchema["primary_problem"]; !ok {
		t.Errorf("Expected 'primary_problem' in JSON schema, got %v", first.JSONSchema)
	}
}

func TestParseStripsDecorativeGlyphs(t *testing.T) {
	tmpl, err := Parse("test.md", []byte(testDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantExamples := []string{
		"Develop a new software application",
		"Reduce onboarding time for new customers",
		"Improve internal reporting accuracy",
	}
	if !reflect.DeepEqual(tmpl.Stages[0].Examples, wantExamples) {
		t.Errorf("Expected examples %v, got %v", wantExamples, tmpl.Stages[0].Examples)
	}

	// ✅ carries a variation selector; both glyph and selector go.
	got := tmpl.Stages[1].Examples[1]
	if got != "External customers on the enterprise plan" {
		t.Errorf("Expected stripped example, got %q", got)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a, errA := Parse("test.md", []byte(testDoc))
	b, errB := Parse("test.md", []byte(testDoc))

	if errA != nil || errB != nil {
		t.Fatalf("Parse failed: %v / %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical results from repeated parses")
	}
}

func TestParseStageCountMismatch(t *testing.T) {
	doc := strings.Replace(testDoc, `"stages_count": 3`, `"stages_count": 5`, 1)

	tmpl, err := Parse("test.md", []byte(doc))
	if err == nil {
		t.Fatal("Expected a stage count mismatch error")
	}
	if !errors.IsStageCountMismatch(err) {
		t.Fatalf("Expected STAGE_COUNT_MISMATCH, got %v", err)
	}

	// Advisory: the template still comes back fully populated.
	if tmpl == nil {
		t.Fatal("Expected template alongside the mismatch error")
	}
	if len(tmpl.Stages) != 3 {
		t.Errorf("Expected 3 stages, got %d", len(tmpl.Stages))
	}
	if tmpl.DeclaredStages != 5 {
		t.Errorf("Expected declared stages 5, got %d", tmpl.DeclaredStages)
	}
}

func TestParseMalformedMetadata(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(string) string
	}{
		{
			"missing template_id",
			func(doc string) string {
				return strings.Replace(doc, `"template_id": "product_discovery",`, "", 1)
			},
		},
		{
			"missing stages_count",
			func(doc string) string {
				return strings.Replace(doc, `,
  "stages_count": 3`, "", 1)
			},
		},
		{
			"invalid JSON in metadata block",
			func(doc string) string {
				return strings.Replace(doc, `"stages_count": 3`, `"stages_count": 3,`, 1)
			},
		},
		{
			"wrong type for stages_count",
			func(doc string) string {
				return strings.Replace(doc, `"stages_count": 3`, `"stages_count": "three"`, 1)
			},
		},
		{
			"no metadata block at all",
			func(doc string) string {
				start := strings.Index(doc, "```json")
				end := strings.Index(doc[start+7:], "```") + start + 7 + 3
				return doc[:start] + doc[end:]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse("test.md", []byte(tt.mutate(testDoc)))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.HasCode(err, errors.ErrCodeMalformedMetadata) {
				t.Errorf("Expected MALFORMED_METADATA, got %v", err)
			}
			if tmpl != nil {
				t.Error("Expected nil template for malformed metadata")
			}
		})
	}
}

func TestParseMalformedStage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(string) string
	}{
		{
			"missing Key label",
			func(doc string) string {
				return strings.Replace(doc, "**Key**: `problem_definition`\n", "", 1)
			},
		},
		{
			"missing Prompt label",
			func(doc string) string {
				return strings.Replace(doc,
					"**Prompt**: What problem are you trying to solve, and who experiences it?\n", "", 1)
			},
		},
		{
			"missing JSON Structure block",
			func(doc string) string {
				block := "```json" + `
{
  "primary_problem": "string",
  "affected_users": ["string"],
  "urgency": "string"
}
` + "```"
				return strings.Replace(doc, block, "", 1)
			},
		},
		{
			"invalid JSON in stage structure",
			func(doc string) string {
				return strings.Replace(doc, `"urgency": "string"`, `"urgency": "string",`, 1)
			},
		},
		{
			"duplicate stage key",
			func(doc string) string {
				return strings.Replace(doc, "`stakeholders`", "`problem_definition`", 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse("test.md", []byte(tt.mutate(testDoc)))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.HasCode(err, errors.ErrCodeMalformedStage) {
				t.Errorf("Expected MALFORMED_STAGE, got %v", err)
			}
			if tmpl != nil {
				t.Error("Expected nil template for malformed stage")
			}
		})
	}
}

func TestParseNoStageSections(t *testing.T) {
	doc := testDoc[:strings.Index(testDoc, "### Stage 1")]

	_, err := Parse("test.md", []byte(doc))
	if err == nil {
		t.Fatal("Expected an error for a document without stages")
	}
	if !errors.HasCode(err, errors.ErrCodeMalformedStage) {
		t.Errorf("Expected MALFORMED_STAGE, got %v", err)
	}
}

func TestParsePreservesStageOrder(t *testing.T) {
	// Stage numbering in headings is display text; document order wins.
	doc := testDoc
	doc = strings.Replace(doc, "### Stage 1: Problem Definition", "### Stage 9: Problem Definition", 1)

	tmpl, err := Parse("test.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tmpl.Stages[0].Key != "problem_definition" {
		t.Errorf("Expected document order preserved, got first key %q", tmpl.Stages[0].Key)
	}
}

func TestParseIgnoresSurroundingProse(t *testing.T) {
	doc := strings.Replace(testDoc, "## Conversation Stages",
		"## Conversation Stages\n\nEach stage below collects one slice of the final configuration.\n", 1)

	tmpl, err := Parse("test.md", []byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tmpl.Stages) != 3 {
		t.Errorf("Expected 3 stages, got %d", len(tmpl.Stages))
	}
}

func TestParseMetadataOnly(t *testing.T) {
	tmpl, err := ParseMetadata("test.md", []byte(testDoc))
	if err != nil {
		t.Fatalf("ParseMetadata failed: %v", err)
	}
	if tmpl.ID != "product_discovery" {
		t.Errorf("Expected ID 'product_discovery', got %q", tmpl.ID)
	}
	if len(tmpl.Stages) != 0 {
		t.Errorf("Expected no stages from metadata-only parse, got %d", len(tmpl.Stages))
	}
}

func TestParseManyStages(t *testing.T) {
	var b strings.Builder
	b.WriteString("```json\n{\"template_id\": \"big\", \"name\": \"Big\", \"stages_count\": 12}\n```\n\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "### Stage %d: Step %d\n", i, i)
		fmt.Fprintf(&b, "**Key**: `step_%d`\n", i)
		fmt.Fprintf(&b, "**Title**: Step %d\n", i)
		fmt.Fprintf(&b, "**Prompt**: Describe step %d.\n\n", i)
		fmt.Fprintf(&b, "**JSON Structure**:\n```json\n{\"value_%d\": \"string\"}\n```\n\n", i)
	}

	tmpl, err := Parse("big.md", []byte(b.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tmpl.Stages) != 12 {
		t.Fatalf("Expected 12 stages, got %d", len(tmpl.Stages))
	}
	for i, s := range tmpl.Stages {
		if want := fmt.Sprintf("step_%d", i+1); s.Key != want {
			t.Errorf("Stage %d: expected key %q, got %q", i+1, want, s.Key)
		}
		if len(s.Examples) != 0 {
			t.Errorf("Stage %d: expected no examples, got %v", i+1, s.Examples)
		}
	}
}
