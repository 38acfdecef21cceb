package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"todosync/backend"
	"todosync/internal/config"
	"todosync/internal/operations"
	"todosync/internal/utils"
)

// isolate points every XDG directory at a fresh temp dir
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	return root
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DeviceID = "test-device"
	cfg.Cache.Dir = filepath.Join(root, "tasks")
	if err := os.MkdirAll(cfg.Cache.Dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	return cfg
}

func openApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	a, err := NewFromConfig(cfg, opts)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	return a
}

func TestOfflineChangesPersistAndStayPending(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	ctx := context.Background()

	a := openApp(t, cfg, Options{Offline: true})
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	res, err := a.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Buy milk"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if res.Warning == nil {
		t.Error("offline add should warn that the remote was not reached")
	}

	status := a.Status()
	if !status.Offline || status.Items != 1 || status.Pending != 1 || !status.Dirty {
		t.Errorf("Status() = %+v", status)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Cache.Dir, cfg.Cache.Destination)); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	reopened := openApp(t, cfg, Options{Offline: true})
	defer reopened.Close()
	if err := reopened.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	items := reopened.Coordinator.Items()
	if len(items) != 1 || items[0].ID != res.Task.ID {
		t.Errorf("reloaded items = %v", items)
	}
}

func TestOfflineSyncIsRefused(t *testing.T) {
	root := isolate(t)
	a := openApp(t, testConfig(t, root), Options{Offline: true})
	defer a.Close()

	if err := a.Sync(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("Sync() error = %v, want ErrOffline", err)
	}
	if err := a.Refresh(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("Refresh() error = %v, want ErrOffline", err)
	}
}

func TestStartSeedsFromRemote(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	ctx := context.Background()

	existing := backend.NewTask("From server", backend.PriorityHigh, backend.WithCreatedAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	mock := backend.NewMockRemote(3, existing)

	a := openApp(t, cfg, Options{Remote: mock})
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	items := a.Coordinator.Items()
	if len(items) != 1 || items[0].ID != existing.ID {
		t.Fatalf("items = %v", items)
	}
	if mock.Calls(backend.OpList) != 1 || mock.Calls(backend.OpBulkUpdate) != 1 {
		t.Errorf("list calls = %d, bulk calls = %d", mock.Calls(backend.OpList), mock.Calls(backend.OpBulkUpdate))
	}

	status := a.Status()
	if status.Dirty || status.Revision != 4 {
		t.Errorf("Status() = %+v, want clean at revision 4", status)
	}
	if status.LastSync == nil || status.LastSync.Timestamp == 0 {
		t.Error("a successful bootstrap should record the sync time")
	}
}

func TestSyncUploadsLocalChanges(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	ctx := context.Background()

	mock := backend.NewMockRemote(0)
	mock.FailNext(backend.OpAdd, backend.NewTransportError(backend.OpAdd, errors.New("connection refused")))

	a := openApp(t, cfg, Options{Remote: mock})
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	res, err := a.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Call mom"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if res.Warning == nil {
		t.Fatal("expected a warning for the failed add")
	}

	if err := a.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	server := mock.Items()
	if len(server) != 1 || server[0].ID != res.Task.ID {
		t.Errorf("server items = %v", server)
	}
	if a.Coordinator.IsDirty() {
		t.Error("coordinator should be clean after sync")
	}
}

func TestStartSyncsLoadedCache(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	ctx := context.Background()

	offline := openApp(t, cfg, Options{Offline: true})
	if _, err := offline.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Written offline"}); err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if err := offline.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mock := backend.NewMockRemote(7)
	mock.StrictRevision = true

	a := openApp(t, cfg, Options{Remote: mock})
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := a.Coordinator.Revision(); got != mock.Revision() {
		t.Fatalf("Revision() = %d, want the remote's %d", got, mock.Revision())
	}

	res, err := a.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Written online"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if res.Warning != nil {
		t.Errorf("add after start should reach the remote: %v", res.Warning)
	}
	if got := len(mock.Items()); got != 2 {
		t.Errorf("remote holds %d items, want 2", got)
	}
	if a.Status().Pending != 0 {
		t.Errorf("Status().Pending = %d, want 0", a.Status().Pending)
	}
}

func TestCloseFinishesAutoResync(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	ctx := context.Background()

	mock := backend.NewMockRemote(0)
	a := openApp(t, cfg, Options{Remote: mock})
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mock.FailNext(backend.OpAdd, backend.NewTransportError(backend.OpAdd, errors.New("connection reset")))
	res, err := a.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Retry me"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if res.Warning == nil {
		t.Fatal("expected a warning for the failed add")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	server := mock.Items()
	if len(server) != 1 || server[0].ID != res.Task.ID {
		t.Errorf("server items = %v, want the resynced task", server)
	}
}

func TestSqliteBackend(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	cfg.Cache.Backend = "sqlite"
	cfg.Cache.DBPath = filepath.Join(root, "tasks.db")
	ctx := context.Background()

	a := openApp(t, cfg, Options{Offline: true})
	if got := a.Store.Type(); got != "sqlite" {
		t.Fatalf("store type = %q", got)
	}
	if _, err := a.Actions().HandleAdd(ctx, operations.TaskInput{Text: "Stored in sqlite", Due: "2026-05-01"}); err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := openApp(t, cfg, Options{Offline: true})
	defer reopened.Close()
	if err := reopened.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	items := reopened.Coordinator.Items()
	if len(items) != 1 || items[0].Text != "Stored in sqlite" || items[0].Deadline == nil {
		t.Errorf("items = %v", items)
	}
}

func TestUnknownCacheBackend(t *testing.T) {
	root := isolate(t)
	cfg := testConfig(t, root)
	cfg.Cache.Backend = "redis"

	if _, err := NewFromConfig(cfg, Options{Offline: true, Logger: utils.NewNopLogger()}); err == nil {
		t.Error("NewFromConfig() should reject an unknown cache backend")
	}
}

func TestNewRegistry(t *testing.T) {
	types := NewRegistry().Types()
	if strings.Join(types, ",") != "file,sqlite" {
		t.Errorf("Types() = %v", types)
	}
}

func TestResolveDeviceID(t *testing.T) {
	isolate(t)

	if id, err := resolveDeviceID(" laptop "); err != nil || id != "laptop" {
		t.Errorf("resolveDeviceID(configured) = %q, %v", id, err)
	}

	first, err := resolveDeviceID("")
	if err != nil {
		t.Fatalf("resolveDeviceID() error = %v", err)
	}
	if first == "" {
		t.Fatal("generated device id is empty")
	}
	second, err := resolveDeviceID("")
	if err != nil {
		t.Fatalf("resolveDeviceID() error = %v", err)
	}
	if first != second {
		t.Errorf("device id changed between runs: %q != %q", first, second)
	}
}

func TestOfflineRemote(t *testing.T) {
	var r backend.RemoteClient = offlineRemote{}
	ctx := context.Background()

	_, listErr := r.List(ctx, 0)
	_, bulkErr := r.BulkUpdate(ctx, 0, nil)
	_, getErr := r.Get(ctx, 0, "x")
	_, addErr := r.Add(ctx, 0, backend.Task{})
	_, editErr := r.Edit(ctx, 0, backend.Task{})
	_, delErr := r.Delete(ctx, 0, "x")

	for _, err := range []error{listErr, bulkErr, getErr, addErr, editErr, delErr} {
		if !errors.Is(err, backend.ErrTransport) || !errors.Is(err, ErrOffline) {
			t.Errorf("error = %v, want a transport error wrapping ErrOffline", err)
		}
	}
}

func TestNewAppLoadsEnvAndConfig(t *testing.T) {
	root := isolate(t)
	keyring.MockInit()

	configPath := filepath.Join(root, "todosync.yaml")
	cacheDir := filepath.Join(root, "tasks")
	yaml := "device_id: ci\n" +
		"remote:\n  name: home\n  url: http://127.0.0.1:1\n" +
		"cache:\n  dir: " + cacheDir + "\n"
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	envFile := filepath.Join(root, ".env")
	if err := os.WriteFile(envFile, []byte("TODOSYNC_HOME_TOKEN=from-dotenv\nTODOSYNC_SYNC_POLICY=keep_pending\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	for _, key := range []string{"TODOSYNC_HOME_TOKEN", "TODOSYNC_SYNC_POLICY"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	a, err := NewApp(Options{ConfigPath: configPath, EnvFile: envFile, Logger: utils.NewNopLogger()})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	if a.ConfigPath != configPath {
		t.Errorf("ConfigPath = %q", a.ConfigPath)
	}
	if a.DeviceID != "ci" {
		t.Errorf("DeviceID = %q", a.DeviceID)
	}
	if a.Config.Sync.Policy != "keep_pending" || a.Coordinator.Policy() != "keep_pending" {
		t.Errorf("policy = %q / %q, want keep_pending from .env", a.Config.Sync.Policy, a.Coordinator.Policy())
	}
	if a.Credentials == nil || a.Credentials.Token != "from-dotenv" {
		t.Fatalf("Credentials = %+v, want the .env token", a.Credentials)
	}
}

func TestNewAppMissingEnvFileIsFine(t *testing.T) {
	root := isolate(t)
	keyring.MockInit()

	configPath := filepath.Join(root, "config.yaml")
	a, err := NewApp(Options{
		ConfigPath: configPath,
		EnvFile:    filepath.Join(root, "missing.env"),
		Offline:    true,
		Logger:     utils.NewNopLogger(),
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("sample config should be created: %v", err)
	}
}
