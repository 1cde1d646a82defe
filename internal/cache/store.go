// Package cache owns the persisted project snapshot and the staleness
// policy that decides when it gets replaced.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/atelierlabs/folio/internal/project"
)

// ErrNotFound signals that the requested project does not exist in the
// current snapshot.
var ErrNotFound = errors.New("project not found")

// On-disk layout under the cache directory. The three encodings are kept
// mutually consistent by Write; readers tolerate observing an older set.
const (
	metadataFile = "projects.json"
	sortedFile   = "projects_by_date.json"
	byIDDir      = "projects"
)

// metadataEnvelope is the full-list encoding: records plus timestamps.
type metadataEnvelope struct {
	LastUpdate time.Time         `json:"last_update"`
	WrittenAt  time.Time         `json:"written_at"`
	Projects   []project.Project `json:"projects"`
}

// Store persists the snapshot in three encodings (metadata-wrapped full
// list, date-sorted bare list, one file per id) plus an in-memory copy.
// Every file write goes to a temp file first and is renamed into place.
type Store struct {
	fs    afero.Fs
	dir   string
	clock project.Clock

	mu   sync.RWMutex
	snap *project.Snapshot
}

// NewStore builds a Store rooted at dir on the given filesystem.
func NewStore(fs afero.Fs, dir string, clock project.Clock) *Store {
	if clock == nil {
		clock = project.SystemClock{}
	}
	return &Store{fs: fs, dir: dir, clock: clock}
}

// Snapshot returns the current snapshot, preferring memory and falling
// back to the metadata file (warm restart). The second return is false
// when no snapshot exists anywhere.
func (s *Store) Snapshot() (project.Snapshot, bool) {
	s.mu.RLock()
	if s.snap != nil {
		snap := *s.snap
		s.mu.RUnlock()
		return snap, true
	}
	s.mu.RUnlock()

	env, err := s.readMetadata()
	if err != nil {
		return project.Snapshot{}, false
	}
	snap := project.Snapshot{LastUpdate: env.LastUpdate, Projects: env.Projects}

	s.mu.Lock()
	if s.snap == nil {
		s.snap = &snap
	}
	snap = *s.snap
	s.mu.Unlock()
	return snap, true
}

// ByID returns one record. The per-id file is the fast path (no full
// collection load); a miss there falls back to scanning the snapshot.
func (s *Store) ByID(id string) (project.Project, error) {
	if err := validateID(id); err != nil {
		return project.Project{}, err
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, byIDDir, id+".json"))
	if err == nil {
		var p project.Project
		if jsonErr := json.Unmarshal(data, &p); jsonErr == nil {
			return p, nil
		}
	}

	snap, ok := s.Snapshot()
	if !ok {
		return project.Project{}, ErrNotFound
	}
	for _, p := range snap.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return project.Project{}, ErrNotFound
}

// Write replaces the snapshot wholesale: all three encodings are written
// (each via temp file + rename) and per-id files for projects that
// disappeared since the previous snapshot are pruned. The in-memory copy
// is swapped only after the files land.
func (s *Store) Write(records []project.Project, lastUpdate time.Time) error {
	for _, p := range records {
		if err := validateID(p.ID); err != nil {
			return err
		}
	}

	env := metadataEnvelope{
		LastUpdate: lastUpdate,
		WrittenAt:  s.clock.Now(),
		Projects:   records,
	}
	if err := s.writeJSON(metadataFile, env); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := s.writeJSON(sortedFile, project.SortByDate(records)); err != nil {
		return fmt.Errorf("write sorted file: %w", err)
	}

	idDir := filepath.Join(s.dir, byIDDir)
	if err := s.fs.MkdirAll(idDir, 0o750); err != nil {
		return fmt.Errorf("create per-id dir: %w", err)
	}
	keep := make(map[string]struct{}, len(records))
	for _, p := range records {
		keep[p.ID+".json"] = struct{}{}
		if err := s.writeJSON(filepath.Join(byIDDir, p.ID+".json"), p); err != nil {
			return fmt.Errorf("write record %s: %w", p.ID, err)
		}
	}
	s.pruneOrphans(idDir, keep)

	s.mu.Lock()
	s.snap = &project.Snapshot{LastUpdate: lastUpdate, Projects: records}
	s.mu.Unlock()
	return nil
}

// LastUpdate reports the snapshot timestamp, zero when absent.
func (s *Store) LastUpdate() time.Time {
	snap, ok := s.Snapshot()
	if !ok {
		return time.Time{}
	}
	return snap.LastUpdate
}

func (s *Store) readMetadata() (metadataEnvelope, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, metadataFile))
	if err != nil {
		return metadataEnvelope{}, fmt.Errorf("read metadata file: %w", err)
	}
	var env metadataEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return metadataEnvelope{}, fmt.Errorf("parse metadata file: %w", err)
	}
	return env, nil
}

func (s *Store) writeJSON(name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	target := filepath.Join(s.dir, name)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o640); err != nil {
		return fmt.Errorf("write temp for %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		s.fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("rename %s into place: %w", name, err)
	}
	return nil
}

// pruneOrphans deletes per-id files whose project is no longer in the
// snapshot. Failures are ignored; the stale file is re-pruned next pass.
func (s *Store) pruneOrphans(idDir string, keep map[string]struct{}) {
	entries, err := afero.ReadDir(s.fs, idDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			continue
		}
		s.fs.Remove(filepath.Join(idDir, entry.Name())) //nolint:errcheck
	}
}

// validateID rejects ids that would escape the per-id directory. Project
// ids come from origin folder names and never contain separators.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, "/\\") || id != filepath.Base(id) {
		return fmt.Errorf("invalid project id %q", id)
	}
	return nil
}
