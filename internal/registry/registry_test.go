package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/serbantica/Chat-Assistant/internal/errors"
)

func templateDoc(id, name string, declared, actual int) string {
	doc := fmt.Sprintf("```json\n{\"template_id\": %q, \"name\": %q, \"stages_count\": %d}\n```\n\n", id, name, declared)
	for i := 1; i <= actual; i++ {
		doc += fmt.Sprintf("### Stage %d: Step %d\n", i, i)
		doc += fmt.Sprintf("**Key**: `step_%d`\n", i)
		doc += fmt.Sprintf("**Title**: Step %d\n", i)
		doc += fmt.Sprintf("**Prompt**: Describe step %d.\n\n", i)
		doc += fmt.Sprintf("**JSON Structure**:\n```json\n{\"value_%d\": \"string\"}\n```\n\n", i)
	}
	return doc
}

func writeTemplate(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}
	return path
}

func setupDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "registry-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestRegistryDiscovery(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 2, 2))
	writeTemplate(t, dir, "beta.md", templateDoc("beta", "Beta Framework", 1, 1))
	writeTemplate(t, dir, "README.md", "# Not a template\n")
	writeTemplate(t, dir, "notes.txt", "ignored")

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	templates := reg.List()
	if len(templates) != 2 {
		t.Fatalf("Expected 2 templates, got %d", len(templates))
	}
	if templates[0].Name != "Alpha Framework" || templates[1].Name != "Beta Framework" {
		t.Errorf("Expected name-sorted listing, got %q, %q", templates[0].Name, templates[1].Name)
	}
}

func TestRegistryGet(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 2, 2))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tmpl, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tmpl.Name != "Alpha Framework" {
		t.Errorf("Expected 'Alpha Framework', got %q", tmpl.Name)
	}
	if len(tmpl.Stages) != 2 {
		t.Errorf("Expected 2 stages, got %d", len(tmpl.Stages))
	}

	if _, err := reg.Get("missing"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Expected NOT_FOUND for unknown id, got %v", err)
	}
}

func TestRegistryReparsesEditedFile(t *testing.T) {
	dir := setupDir(t)
	path := writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 1, 1))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if tmpl, _ := reg.Get("alpha"); len(tmpl.Stages) != 1 {
		t.Fatalf("Expected 1 stage initially, got %d", len(tmpl.Stages))
	}

	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 3, 3))
	// Make the mtime change visible even on coarse-grained filesystems.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	tmpl, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get after edit failed: %v", err)
	}
	if len(tmpl.Stages) != 3 {
		t.Errorf("Expected 3 stages after edit, got %d", len(tmpl.Stages))
	}
}

func TestRegistryCachesUnchangedFile(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 1, 1))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first != second {
		t.Error("Expected the cached template instance for an unchanged file")
	}
}

func TestRegistryUnparseableFileIsUnavailable(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "good.md", templateDoc("good", "Good Framework", 1, 1))
	writeTemplate(t, dir, "broken.md", "# No metadata here\n\n### Stage 1: Broken\n")

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := len(reg.List()); got != 1 {
		t.Errorf("Expected 1 available template, got %d", got)
	}

	problems := reg.Problems()
	if len(problems) != 1 {
		t.Fatalf("Expected 1 problem file, got %d", len(problems))
	}
	if !errors.HasCode(problems["broken.md"], errors.ErrCodeMalformedMetadata) {
		t.Errorf("Expected MALFORMED_METADATA for broken.md, got %v", problems["broken.md"])
	}
}

func TestRegistryStageCountMismatchIsAdvisory(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 5, 2))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// The template stays available.
	tmpl, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(tmpl.Stages) != 2 {
		t.Errorf("Expected 2 stages, got %d", len(tmpl.Stages))
	}

	adv := reg.Advisory("alpha")
	if adv == nil {
		t.Fatal("Expected an advisory for the count mismatch")
	}
	if adv.Code != errors.ErrCodeStageCountMismatch {
		t.Errorf("Expected STAGE_COUNT_MISMATCH advisory, got %s", adv.Code)
	}
}

func TestRegistryDuplicateIDKeepsFirst(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "a_first.md", templateDoc("shared", "First", 1, 1))
	writeTemplate(t, dir, "b_second.md", templateDoc("shared", "Second", 1, 1))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	templates := reg.List()
	if len(templates) != 1 {
		t.Fatalf("Expected 1 template for duplicate ids, got %d", len(templates))
	}
	if templates[0].Name != "First" {
		t.Errorf("Expected the first file to win, got %q", templates[0].Name)
	}
}

func TestRegistryReloadDropsDeletedFiles(t *testing.T) {
	dir := setupDir(t)
	writeTemplate(t, dir, "alpha.md", templateDoc("alpha", "Alpha Framework", 1, 1))
	path := writeTemplate(t, dir, "beta.md", templateDoc("beta", "Beta Framework", 1, 1))

	reg, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := len(reg.List()); got != 2 {
		t.Fatalf("Expected 2 templates, got %d", got)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := len(reg.List()); got != 1 {
		t.Errorf("Expected 1 template after deletion, got %d", got)
	}
	if _, err := reg.Get("beta"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Expected NOT_FOUND for deleted template, got %v", err)
	}
}

func TestRegistryMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(os.TempDir(), "does-not-exist-registry")); err == nil {
		t.Error("Expected an error for a missing templates directory")
	}
}
