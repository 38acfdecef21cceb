package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"todosync/internal/utils"
)

// SyncStamp remembers when a destination was last reconciled with the remote.
// It is informational only: the revision is never persisted.
type SyncStamp struct {
	Destination string `json:"destination"`
	Timestamp   int64  `json:"timestamp"`
	Items       int    `json:"items"`
}

// Time returns the stamp time
func (s SyncStamp) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// IsStale reports whether the stamp is older than interval
func (s SyncStamp) IsStale(interval time.Duration, now time.Time) bool {
	if s.Timestamp == 0 {
		return true
	}
	return now.Sub(s.Time()) > interval
}

// GetCacheDir returns the XDG-compliant cache directory path, creating it
func GetCacheDir() (string, error) {
	cacheDir, err := utils.AppDir(utils.CacheDir)
	if err != nil {
		return "", err
	}
	return cacheDir, os.MkdirAll(cacheDir, 0755)
}

// ResolvePath turns a cache destination into a file path. Absolute
// destinations are used as is; relative ones are joined to baseDir, or to the
// cache directory when baseDir is empty.
func ResolvePath(baseDir, destination string) (string, error) {
	if destination == "" {
		return "", fmt.Errorf("empty destination")
	}
	if filepath.IsAbs(destination) {
		return filepath.Clean(destination), nil
	}
	if baseDir == "" {
		dir, err := GetCacheDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		baseDir = dir
	}
	return filepath.Join(baseDir, destination), nil
}

func stampFile(destination string) (string, error) {
	dir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sync-"+filepath.Base(destination)+".stamp.json"), nil
}

// SaveSyncStamp records a successful sync of destination
func SaveSyncStamp(destination string, items int) error {
	path, err := stampFile(destination)
	if err != nil {
		return err
	}

	stamp := SyncStamp{
		Destination: destination,
		Timestamp:   time.Now().Unix(),
		Items:       items,
	}
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadSyncStamp returns the last recorded sync of destination. A destination
// that was never synced yields a zero stamp and no error.
func LoadSyncStamp(destination string) (SyncStamp, error) {
	path, err := stampFile(destination)
	if err != nil {
		return SyncStamp{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return SyncStamp{Destination: destination}, nil
	}
	if err != nil {
		return SyncStamp{}, err
	}

	var stamp SyncStamp
	if err := json.Unmarshal(data, &stamp); err != nil {
		return SyncStamp{}, err
	}
	return stamp, nil
}
