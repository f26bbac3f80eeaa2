// Package api exposes read-only HTTP endpoints over the template registry and
// session store, for integrations that want the parsed templates or session
// exports without going through the terminal interfaces.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/service"
	"github.com/serbantica/Chat-Assistant/internal/session"
)

// Server provides HTTP endpoints for API integrations
type Server struct {
	service *service.Service
	port    int
	errors  *errors.HTTPErrorHandler
}

// NewServer creates a new API server instance
func NewServer(svc *service.Service, port int) *Server {
	return &Server{
		service: svc,
		port:    port,
		errors:  errors.NewHTTPErrorHandler(true),
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/templates", s.withCORS(s.handleTemplates))
	mux.HandleFunc("/templates/", s.withCORS(s.handleTemplate))
	mux.HandleFunc("/search", s.withCORS(s.handleSearch))
	mux.HandleFunc("/validate", s.withCORS(s.handleValidate))
	mux.HandleFunc("/sessions", s.withCORS(s.handleSessions))
	mux.HandleFunc("/sessions/", s.withCORS(s.handleSession))
	return mux
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("API server starting on http://localhost%s", addr)
	log.Printf("  GET /templates - list templates")
	log.Printf("  GET /templates/{id} - get a template")
	log.Printf("  GET /search?q=... - fuzzy-search templates")
	log.Printf("  GET /validate - authoring reports")
	log.Printf("  GET /sessions - list saved sessions")
	log.Printf("  GET /sessions/{file} - session export preview")

	return http.ListenAndServe(addr, s.Handler())
}

// withCORS decorates a handler with permissive CORS headers and restricts the
// API to read-only access.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodGet {
			s.errors.WriteHTTPError(w, errors.InvalidCommandError(r.Method, "only GET is supported"))
			return
		}
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{
		"status":  "ok",
		"service": "chat-assistant-api",
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"templates": s.service.ListTemplates(),
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/templates/")
	if id == "" || strings.Contains(id, "/") {
		s.errors.WriteHTTPError(w, errors.ValidationError("a template id is required"))
		return
	}

	tmpl, err := s.service.GetTemplate(id)
	if err != nil {
		s.errors.WriteHTTPError(w, err)
		return
	}

	resp := map[string]interface{}{"template": tmpl}
	if adv := s.service.Registry().Advisory(id); adv != nil {
		resp["warning"] = adv.Message
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.errors.WriteHTTPError(w, errors.ValidationError("query parameter 'q' is required"))
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"query":     query,
		"templates": s.service.SearchTemplates(query),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"reports": s.service.ValidateTemplates(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	infos, err := s.service.ListSessions()
	if err != nil {
		s.errors.WriteHTTPError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"sessions": infos})
}

// handleSession returns the export preview for one saved session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if filename == "" || strings.Contains(filename, "/") {
		s.errors.WriteHTTPError(w, errors.ValidationError("a session filename is required"))
		return
	}

	m, err := s.service.ResumeSession(filename)
	if err != nil {
		s.errors.WriteHTTPError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"export": session.BuildExport(m.Template(), m.Session()),
	})
}
