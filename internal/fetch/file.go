package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dealradar/internal/domain"
)

// FileSource replays raw records from disk, one JSON file per query key at
// <dir>/<query_key>.json holding an array of records. Used for offline runs
// and for reprocessing a captured scrape.
type FileSource struct {
	dir string
}

// NewFileSource creates a replay source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Compile-time interface check.
var _ Fetcher = (*FileSource)(nil)

// Fetch reads the target's capture file. A missing file is a fetch failure
// for that target, not an empty result: replay must not fabricate an empty
// marketplace and mark every listing removed.
func (s *FileSource) Fetch(ctx context.Context, target domain.Target) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, target.QueryKey+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", filepath.Base(path), err)
	}

	var wires []wireRecord
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("decode capture %s: %w", filepath.Base(path), err)
	}

	records := make([]domain.RawRecord, 0, len(wires))
	for _, w := range wires {
		records = append(records, w.toRaw(target.Platform))
	}
	return records, nil
}
