package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TODOSYNC_TEST_DIR", "/srv/todosync")
	t.Setenv("TODOSYNC_TEST_TILDE", "~/from-env")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/.local/share/todosync/tasks.db", filepath.Join(home, ".local/share/todosync/tasks.db")},
		{"/var/lib/tasks.db", "/var/lib/tasks.db"},
		{"relative/tasks.json", "relative/tasks.json"},
		{"$TODOSYNC_TEST_DIR/tasks.db", "/srv/todosync/tasks.db"},
		{"${TODOSYNC_TEST_DIR}/logs", "/srv/todosync/logs"},
		{"$TODOSYNC_TEST_TILDE/x", filepath.Join(home, "from-env/x")},
		{"/data/~/backup", "/data/~/backup"},
		{"~user/tasks", "~user/tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAppDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))

	tests := []struct {
		kind DirKind
		want string
	}{
		{ConfigDir, filepath.Join(base, "config", AppName)},
		{DataDir, filepath.Join(base, "data", AppName)},
		{CacheDir, filepath.Join(base, "cache", AppName)},
	}

	for _, tt := range tests {
		got, err := AppDir(tt.kind)
		if err != nil {
			t.Fatalf("AppDir(%d) error = %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("AppDir(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}

	if _, err := os.Stat(filepath.Join(base, "config")); !os.IsNotExist(err) {
		t.Error("AppDir must not create directories")
	}
}

func TestAppDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")

	data, err := AppDir(DataDir)
	if err != nil {
		t.Fatalf("AppDir() error = %v", err)
	}
	if want := filepath.Join(home, ".local", "share", AppName); data != want {
		t.Errorf("AppDir(DataDir) = %q, want %q", data, want)
	}

	cache, err := AppDir(CacheDir)
	if err != nil {
		t.Fatalf("AppDir() error = %v", err)
	}
	if want := filepath.Join(home, ".cache", AppName); cache != want {
		t.Errorf("AppDir(CacheDir) = %q, want %q", cache, want)
	}

	if _, err := AppDir(DirKind(42)); err == nil {
		t.Error("expected error for unknown kind")
	}
}
