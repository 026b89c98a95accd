// Package fsjson implements the snapshot history as a directory of
// immutable JSON artifacts, one subdirectory per run. The layout is made
// for keeping under version control:
//
//	<root>/runs/<run_id>/<query_key>.json   one snapshot document per query
//	<root>/runs/<run_id>/alerts.json        alert records for the run
//
// Persist stages the whole run under a hidden directory and publishes it
// with a single rename, so a crashed run leaves nothing visible to the next
// one. Abandoned staging directories are ignored by readers.
package fsjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"dealradar/internal/domain"
	"dealradar/internal/storage"
)

const (
	runsDirName   = "runs"
	stagingPrefix = ".staging-"
	alertsFile    = "alerts.json"
)

// Names usable as path components: no separators, no traversal.
var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// SnapshotStore is a filesystem implementation of storage.SnapshotStore.
type SnapshotStore struct {
	root string
}

// NewSnapshotStore creates a store rooted at dir, creating it if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, runsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}
	return &SnapshotStore{root: dir}, nil
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Persist writes the run's snapshots and alert records into a staging
// directory and publishes it with one rename.
func (s *SnapshotStore) Persist(ctx context.Context, runID string, snapshots []*domain.Snapshot, alerts []domain.AlertRecord) error {
	if !safeName.MatchString(runID) || strings.HasPrefix(runID, ".") {
		return storage.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	finalDir := filepath.Join(s.root, runsDirName, runID)
	if _, err := os.Stat(finalDir); err == nil {
		return storage.ErrDuplicateRun
	}

	stagingDir := filepath.Join(s.root, runsDirName, stagingPrefix+runID)
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	for _, snap := range snapshots {
		if snap == nil || !safeName.MatchString(snap.QueryKey) {
			return storage.ErrInvalidInput
		}
		if err := writeJSON(filepath.Join(stagingDir, snap.QueryKey+".json"), snap); err != nil {
			return err
		}
	}

	if len(alerts) > 0 {
		if err := writeJSON(filepath.Join(stagingDir, alertsFile), alerts); err != nil {
			return err
		}
	}

	// Single rename = atomic publish.
	if err := os.Rename(stagingDir, finalDir); err != nil {
		if _, statErr := os.Stat(finalDir); statErr == nil {
			return storage.ErrDuplicateRun
		}
		return fmt.Errorf("publish run %s: %w", runID, err)
	}
	return nil
}

// LoadLatest returns the newest snapshot for a query key, or an empty
// snapshot when the query has no history.
func (s *SnapshotStore) LoadLatest(ctx context.Context, queryKey string) (*domain.Snapshot, error) {
	history, err := s.LoadHistory(ctx, queryKey, domain.BaselineWindow{})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return &domain.Snapshot{QueryKey: queryKey}, nil
	}
	return history[len(history)-1], nil
}

// LoadHistory returns snapshots for a query key ordered oldest..newest,
// bounded by the window.
func (s *SnapshotStore) LoadHistory(_ context.Context, queryKey string, window domain.BaselineWindow) ([]*domain.Snapshot, error) {
	if !safeName.MatchString(queryKey) {
		return nil, storage.ErrInvalidInput
	}

	runDirs, err := s.runDirs()
	if err != nil {
		return nil, err
	}

	var history []*domain.Snapshot
	for _, dir := range runDirs {
		path := filepath.Join(dir, queryKey+".json")
		snap := &domain.Snapshot{}
		ok, err := readJSON(path, snap)
		if err != nil {
			return nil, err
		}
		if ok {
			history = append(history, snap)
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].GeneratedAt < history[j].GeneratedAt
	})

	return storage.ApplyWindow(history, window), nil
}

// AlertedIDs returns the latest alert record per listing id for a query key.
func (s *SnapshotStore) AlertedIDs(_ context.Context, queryKey string) (map[string]domain.AlertRecord, error) {
	runDirs, err := s.runDirs()
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.AlertRecord)
	for _, dir := range runDirs {
		var records []domain.AlertRecord
		ok, err := readJSON(filepath.Join(dir, alertsFile), &records)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, rec := range records {
			if rec.QueryKey != queryKey {
				continue
			}
			if prev, seen := result[rec.ListingID]; !seen || rec.AlertedAt >= prev.AlertedAt {
				result[rec.ListingID] = rec
			}
		}
	}
	return result, nil
}

// runDirs lists published run directories, skipping staging leftovers.
func (s *SnapshotStore) runDirs() ([]string, error) {
	base := filepath.Join(s.root, runsDirName)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dirs = append(dirs, filepath.Join(base, entry.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reads path into v. Returns ok=false when the file does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
