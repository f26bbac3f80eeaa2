package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/serbantica/Chat-Assistant/internal/config"
	"github.com/serbantica/Chat-Assistant/internal/service"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	base := t.TempDir()

	templatesDir := filepath.Join(base, "templates")
	if err := os.MkdirAll(templatesDir, 0755); err != nil {
		t.Fatalf("Failed to create templates dir: %v", err)
	}

	doc := "```json\n{\"template_id\": \"business_decision\", \"name\": \"Business Decision\", \"stages_count\": 1}\n```\n\n" +
		"### Stage 1: Problem\n" +
		"**Key**: `problem`\n" +
		"**Title**: Problem\n" +
		"**Prompt**: What is the problem?\n\n" +
		"**JSON Structure**:\n```json\n{\"primary_problem\": \"string\"}\n```\n"
	if err := os.WriteFile(filepath.Join(templatesDir, "business_decision.md"), []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}

	svc, err := service.New(&config.Config{
		BaseDir:      base,
		TemplatesDir: templatesDir,
		SessionsDir:  filepath.Join(base, "sessions"),
	})
	if err != nil {
		t.Fatalf("service.New failed: %v", err)
	}
	return NewServer(svc, 0)
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestListTemplates(t *testing.T) {
	srv := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/templates")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Templates []struct {
			ID string `json:"template_id"`
		} `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(body.Templates) != 1 || body.Templates[0].ID != "business_decision" {
		t.Errorf("Unexpected templates: %+v", body.Templates)
	}
}

func TestGetTemplate(t *testing.T) {
	srv := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/templates/business_decision")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/templates/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown template, got %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid error JSON: %v", err)
	}
	if body.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND code, got %q", body.Error.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := setupServer(t)

	if rec := doRequest(t, srv, http.MethodGet, "/search"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without query, got %d", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodGet, "/search?q=decision"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with query, got %d", rec.Code)
	}
}

func TestReadOnly(t *testing.T) {
	srv := setupServer(t)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := doRequest(t, srv, method, "/templates")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", method, rec.Code)
		}
	}

	// CORS preflight passes through.
	if rec := doRequest(t, srv, http.MethodOptions, "/templates"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for OPTIONS, got %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/validate")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Reports []struct {
			Source string `json:"source"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(body.Reports) != 1 {
		t.Errorf("Expected 1 report, got %+v", body.Reports)
	}
}

func TestSessionsEndpoints(t *testing.T) {
	srv := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	if rec := doRequest(t, srv, http.MethodGet, "/sessions/missing.json"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing session, got %d", rec.Code)
	}

	// A saved session becomes visible with its export preview.
	m, err := srv.service.StartSession("business_decision")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := m.RecordAnswer(map[string]interface{}{"primary_problem": "Churn is rising"}); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}

	path := fmt.Sprintf("/sessions/%s", m.TempFile())
	rec = doRequest(t, srv, http.MethodGet, path)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for saved session, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Export struct {
			Configuration map[string]map[string]interface{} `json:"json_config"`
		} `json:"export"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body.Export.Configuration["problem"]["primary_problem"] != "Churn is rising" {
		t.Errorf("Unexpected export configuration: %v", body.Export.Configuration)
	}
}
