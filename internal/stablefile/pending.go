package stablefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"briefcast/internal/fileutil"
)

// observation is the last recorded state of a candidate file.
type observation struct {
	Size      int64     `json:"size"`
	ModTime   int64     `json:"mtime"`
	FirstSeen time.Time `json:"first_seen"`
}

func (o observation) matches(size int64, modTime time.Time) bool {
	return o.Size == size && o.ModTime == modTime.UnixNano()
}

func loadPending(path string) (map[string]observation, error) {
	pending := make(map[string]observation)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pending, nil
		}
		return nil, fmt.Errorf("read pending map: %w", err)
	}
	if len(data) == 0 {
		return pending, nil
	}
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode pending map %s: %w", path, err)
	}
	return pending, nil
}

func savePending(path string, pending map[string]observation) error {
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending map: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
