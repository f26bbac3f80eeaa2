package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/serbantica/Chat-Assistant/internal/errors"
	"github.com/serbantica/Chat-Assistant/internal/models"
)

// Store persists sessions and exports as JSON files in one directory
type Store struct {
	dir string
}

// NewStore creates the sessions directory if needed and returns a store
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.StorageError("resolve home directory", err)
		}
		dir = filepath.Join(homeDir, ".chat-assistant", "sessions")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.StorageError(fmt.Sprintf("create sessions directory %s", dir), err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes into
func (s *Store) Dir() string {
	return s.dir
}

// path validates the filename and joins it to the store directory. Filenames
// with path separators are rejected so callers cannot escape the store.
func (s *Store) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", errors.ValidationError(fmt.Sprintf("invalid session filename %q", filename))
	}
	return filepath.Join(s.dir, filename), nil
}

// SaveSession writes the in-progress session state to the given filename
func (s *Store) SaveSession(filename string, sess *models.Session) error {
	fullPath, err := s.path(filename)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.StorageError("serialize session", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return errors.StorageError(fmt.Sprintf("write session file %s", filename), err)
	}
	return nil
}

// SaveExport writes a finalized export document
func (s *Store) SaveExport(filename string, export *Export) error {
	fullPath, err := s.path(filename)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return errors.StorageError("serialize export", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return errors.StorageError(fmt.Sprintf("write export file %s", filename), err)
	}
	return nil
}

// LoadSession reads a saved session back
func (s *Store) LoadSession(filename string) (*models.Session, error) {
	fullPath, err := s.path(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError(fmt.Sprintf("session file '%s'", filename))
		}
		return nil, errors.StorageError(fmt.Sprintf("read session file %s", filename), err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileCorrupted,
			fmt.Sprintf("session file %s is not valid JSON", filename))
	}
	return &sess, nil
}

// Delete removes a session or export file
func (s *Store) Delete(filename string) error {
	fullPath, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundError(fmt.Sprintf("session file '%s'", filename))
		}
		return errors.StorageError(fmt.Sprintf("delete session file %s", filename), err)
	}
	return nil
}

// Info describes one stored file for listings
type Info struct {
	Filename  string    `json:"filename"`
	Temporary bool      `json:"temporary"`
	ModTime   time.Time `json:"mod_time"`
	Size      int64     `json:"size"`
}

// List returns the store's JSON files, newest first
func (s *Store) List() ([]Info, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.StorageError("list sessions directory", err)
	}

	var infos []Info
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Filename:  de.Name(),
			Temporary: strings.HasSuffix(de.Name(), "_temp.json"),
			ModTime:   fi.ModTime(),
			Size:      fi.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})
	return infos, nil
}

// ListInProgress returns only temporary auto-saved sessions
func (s *Store) ListInProgress() ([]Info, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var temps []Info
	for _, info := range all {
		if info.Temporary {
			temps = append(temps, info)
		}
	}
	return temps, nil
}
