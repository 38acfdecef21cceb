package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user directories of the application
const AppName = "todosync"

// DirKind selects an XDG base directory
type DirKind int

const (
	ConfigDir DirKind = iota // $XDG_CONFIG_HOME, ~/.config
	DataDir                  // $XDG_DATA_HOME, ~/.local/share
	CacheDir                 // $XDG_CACHE_HOME, ~/.cache
)

// AppDir returns the application directory under the XDG base directory of
// the given kind. It does not create it.
func AppDir(kind DirKind) (string, error) {
	var envVar string
	var fallback []string
	switch kind {
	case ConfigDir:
		envVar, fallback = "XDG_CONFIG_HOME", []string{".config"}
	case DataDir:
		envVar, fallback = "XDG_DATA_HOME", []string{".local", "share"}
	case CacheDir:
		envVar, fallback = "XDG_CACHE_HOME", []string{".cache"}
	default:
		return "", fmt.Errorf("unknown directory kind %d", kind)
	}

	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, fallback...), AppName)...), nil
}

// ExpandPath expands ~ and environment variables in file paths
// Examples:
//   - "~/data/file.txt" -> "/home/user/data/file.txt"
//   - "$HOME/data" -> "/home/user/data"
//   - "/abs/path" -> "/abs/path" (unchanged)
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	// Environment variables first, so a variable may itself start with ~
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		if path == "~" {
			return homeDir, nil
		}
		path = filepath.Join(homeDir, path[2:])
	}

	return path, nil
}
