// Package registry discovers and caches conversation framework documents on
// disk. Templates are markdown files in a directory tree; the registry indexes
// them by template_id and keeps parsed results keyed by file modification
// time, so repeated lookups only reparse files that actually changed.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
	"github.com/serbantica/Chat-Assistant/internal/template"
)

// entry is one cached parse result tied to the source file's mtime
type entry struct {
	template *models.Template
	modTime  time.Time
	advisory *errors.AppError
}

// Registry indexes the framework documents under a templates directory
type Registry struct {
	dir string

	mu       sync.RWMutex
	entries  map[string]*entry // relative path -> cached parse
	byID     map[string]string // template_id -> relative path
	problems map[string]error  // relative path -> hard parse failure
}

// New creates a registry over the given templates directory and performs the
// initial scan. Files that fail to parse do not fail construction; they are
// recorded as unavailable and reported by Problems.
func New(dir string) (*Registry, error) {
	if dir == "" {
		return nil, errors.ValidationError("templates directory is required")
	}
	if info, err := os.Stat(dir); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure,
			fmt.Sprintf("templates directory %s is not accessible", dir))
	} else if !info.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	r := &Registry{
		dir:      dir,
		entries:  make(map[string]*entry),
		byID:     make(map[string]string),
		problems: make(map[string]error),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the templates directory the registry watches
func (r *Registry) Dir() string {
	return r.dir
}

// Reload rescans the templates directory. Cached entries whose files are
// unchanged are reused; entries for deleted files are dropped.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	newByID := make(map[string]string)
	newProblems := make(map[string]error)

	err := filepath.Walk(r.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		// README files are documentation, not templates.
		if strings.EqualFold(filepath.Base(path), "README.md") {
			return nil
		}

		relPath, _ := filepath.Rel(r.dir, path)
		seen[relPath] = true

		e, ok := r.entries[relPath]
		if !ok || !info.ModTime().Equal(e.modTime) {
			e = r.parseFile(path, relPath, info)
			if e == nil {
				// Hard failure: drop any stale cached entry, keep the
				// file listed as unavailable.
				delete(r.entries, relPath)
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					newProblems[relPath] = errors.StorageError("read template", readErr)
				} else if _, parseErr := template.Parse(relPath, data); parseErr != nil {
					newProblems[relPath] = parseErr
				}
				fmt.Fprintf(os.Stderr, "Warning: failed to load template %s: %v\n", relPath, newProblems[relPath])
				return nil
			}
			r.entries[relPath] = e
		}

		id := e.template.ID
		if prev, dup := newByID[id]; dup {
			fmt.Fprintf(os.Stderr, "Warning: duplicate template_id %q in %s (already provided by %s), skipping\n",
				id, relPath, prev)
			delete(r.entries, relPath)
			delete(seen, relPath)
			return nil
		}
		newByID[id] = relPath
		return nil
	})
	if err != nil {
		return errors.StorageError("scan templates directory", err)
	}

	for relPath := range r.entries {
		if !seen[relPath] {
			delete(r.entries, relPath)
		}
	}

	r.byID = newByID
	r.problems = newProblems
	return nil
}

// parseFile reads and parses one document, returning nil on hard failure.
// Advisory count mismatches are kept with the entry.
func (r *Registry) parseFile(fullPath, relPath string, info os.FileInfo) *entry {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil
	}

	tmpl, err := template.Parse(relPath, data)
	if err != nil && !errors.IsStageCountMismatch(err) {
		return nil
	}

	tmpl.FilePath = relPath
	e := &entry{template: tmpl, modTime: info.ModTime()}
	if err != nil {
		e.advisory = errors.GetAppError(err)
		fmt.Fprintf(os.Stderr, "Warning: template %s: %v\n", relPath, e.advisory.Message)
	}
	return e
}

// List returns all available templates sorted by name. Unavailable files are
// excluded; use Problems to report them.
func (r *Registry) List() []*models.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]*models.Template, 0, len(r.byID))
	for _, relPath := range r.byID {
		if e, ok := r.entries[relPath]; ok {
			templates = append(templates, e.template)
		}
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Name != templates[j].Name {
			return templates[i].Name < templates[j].Name
		}
		return templates[i].ID < templates[j].ID
	})
	return templates
}

// Get returns the template with the given template_id. The backing file's
// mtime is checked first, so an edited template is reparsed transparently.
func (r *Registry) Get(id string) (*models.Template, error) {
	r.mu.RLock()
	relPath, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundError(fmt.Sprintf("template '%s'", id)).
			WithContext("template_id", id)
	}

	fullPath := filepath.Join(r.dir, relPath)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, errors.StorageError("stat template", err).WithContext("source", relPath)
	}

	r.mu.RLock()
	e, cached := r.entries[relPath]
	r.mu.RUnlock()
	if cached && info.ModTime().Equal(e.modTime) {
		return e.template, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e = r.parseFile(fullPath, relPath, info)
	if e == nil {
		delete(r.entries, relPath)
		delete(r.byID, id)
		data, readErr := os.ReadFile(fullPath)
		if readErr != nil {
			return nil, errors.StorageError("read template", readErr).WithContext("source", relPath)
		}
		_, parseErr := template.Parse(relPath, data)
		r.problems[relPath] = parseErr
		return nil, parseErr
	}
	r.entries[relPath] = e
	return e.template, nil
}

// Advisory returns the count mismatch warning recorded for a template_id,
// or nil if the template parsed cleanly.
func (r *Registry) Advisory(id string) *errors.AppError {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if relPath, ok := r.byID[id]; ok {
		if e, ok := r.entries[relPath]; ok {
			return e.advisory
		}
	}
	return nil
}

// Problems returns the files that failed to parse on the last scan, keyed by
// path relative to the templates directory.
func (r *Registry) Problems() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]error, len(r.problems))
	for k, v := range r.problems {
		out[k] = v
	}
	return out
}
