package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"todosync/backend"
	"todosync/backend/file"
	"todosync/backend/remote"
	"todosync/backend/sqlite"
	"todosync/internal/cache"
	"todosync/internal/cli"
	"todosync/internal/config"
	"todosync/internal/credentials"
	"todosync/internal/operations"
	tsync "todosync/internal/sync"
	"todosync/internal/utils"
)

// ErrOffline is the transport failure every remote call reports in offline mode
var ErrOffline = errors.New("offline mode")

// Options controls how the application is assembled
type Options struct {
	ConfigPath string // Empty uses the XDG default
	EnvFile    string // Dotenv file, ".env" when empty
	Verbose    bool
	Offline    bool

	// Remote replaces the HTTP client, for tests and the mock server
	Remote backend.RemoteClient
	// Logger replaces the configured logger
	Logger *utils.Logger
}

// App holds the assembled application: config, cache store, remote client
// and the sync coordinator driving them.
type App struct {
	Config      *config.Config
	ConfigPath  string
	Logger      *utils.Logger
	Store       backend.TaskStore
	Remote      backend.RemoteClient
	Coordinator *tsync.Coordinator
	Credentials *credentials.Credentials
	DeviceID    string
	Offline     bool

	ownsLogger bool
}

// LoadConfig loads the dotenv file, then the configuration it may override.
// It returns the config and the resolved config path.
func LoadConfig(configPath, envFile string) (*config.Config, string, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	path, err := config.GetConfigPath(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// NewApp loads the environment and configuration, then assembles the app
func NewApp(opts Options) (*App, error) {
	cfg, configPath, err := LoadConfig(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, err
	}

	a, err := NewFromConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	a.ConfigPath = configPath
	return a, nil
}

// NewFromConfig assembles the app from an already loaded configuration
func NewFromConfig(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, ConfigPath: opts.ConfigPath, Offline: opts.Offline}

	if opts.Logger != nil {
		a.Logger = opts.Logger
	} else {
		logger, err := utils.NewLogger(cfg.Log.LogOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		a.Logger = logger
		a.ownsLogger = true
	}
	if opts.Verbose {
		a.Logger.SetVerbose(true)
	}
	utils.SetLogger(a.Logger)

	deviceID, err := resolveDeviceID(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	a.DeviceID = deviceID

	store, err := NewRegistry().Open(cfg.Cache.Backend, backend.StoreOptions{
		CacheDir: cfg.Cache.Dir,
		DBPath:   cfg.Cache.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	a.Store = store

	switch {
	case opts.Remote != nil:
		a.Remote = opts.Remote
	case opts.Offline:
		a.Remote = offlineRemote{}
	default:
		client, err := a.newRemoteClient()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.Remote = client
	}

	policy, err := tsync.ParsePolicy(cfg.Sync.Policy)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	coordinator, err := tsync.NewCoordinator(a.Store, a.Remote, tsync.Options{
		Destination:  cfg.Cache.Destination,
		Policy:       policy,
		AutoResync:   cfg.Sync.AutoResync && !opts.Offline,
		TombstoneTTL: cfg.Sync.TombstoneTTL,
		Logger:       a.Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Coordinator = coordinator

	a.Logger.Debug("App ready: remote=%s cache=%s:%s offline=%v", cfg.Remote.Name, cfg.Cache.Backend, cfg.Cache.Destination, opts.Offline)
	return a, nil
}

// NewRegistry returns a registry holding every cache backend linked in
func NewRegistry() *backend.Registry {
	r := backend.NewRegistry()
	file.Register(r)
	sqlite.Register(r)
	return r
}

// newRemoteClient resolves the token and builds the HTTP client. A missing
// token is not fatal: the service decides whether it needs one.
func (a *App) newRemoteClient() (*remote.Client, error) {
	rc := a.Config.Remote

	token := ""
	creds, err := credentials.NewResolver(a.Logger).Resolve(rc.Name, rc.Token)
	if err != nil {
		a.Logger.Warn("Continuing without credentials: %v", err)
	} else {
		a.Credentials = creds
		token = creds.Token
		a.Logger.Debug("Token for %s from %s", rc.Name, creds.Source)
	}

	return remote.NewClient(remote.Config{
		BaseURL:            rc.URL,
		Token:              token,
		AuthScheme:         rc.AuthScheme,
		DeviceID:           a.DeviceID,
		Timeout:            rc.Timeout,
		RequestsPerSecond:  rc.RequestsPerSecond,
		Burst:              rc.Burst,
		InsecureSkipVerify: rc.InsecureSkipVerify,
	})
}

// Start loads the local cache and, unless offline, syncs it with the remote;
// without a usable cache the remote list seeds it. The revision is not
// persisted, so this sync is also how a new process learns it. Remote
// failures are returned but leave the app usable on whatever is cached.
func (a *App) Start(ctx context.Context) error {
	if a.Offline {
		if err := a.Coordinator.LoadCache(); err != nil {
			a.Logger.Debug("No cache to load in offline mode: %v", err)
		}
		return nil
	}
	if err := a.Coordinator.Bootstrap(ctx); err != nil {
		return err
	}
	a.recordSync()
	return nil
}

// Sync runs a full sync and records its time on success
func (a *App) Sync(ctx context.Context) error {
	if a.Offline {
		return utils.WrapWithSuggestion(ErrOffline, "Run without --offline to sync")
	}
	if err := a.Coordinator.Sync(ctx); err != nil {
		return err
	}
	a.recordSync()
	return nil
}

// Refresh merges the remote list into the cache
func (a *App) Refresh(ctx context.Context) error {
	if a.Offline {
		return utils.WrapWithSuggestion(ErrOffline, "Run without --offline to refresh")
	}
	return a.Coordinator.Refresh(ctx)
}

func (a *App) recordSync() {
	if err := cache.SaveSyncStamp(a.Config.Cache.Destination, len(a.Coordinator.Items())); err != nil {
		a.Logger.Debug("Failed to record sync time: %v", err)
	}
}

// Actions returns the CLI task actions bound to the coordinator
func (a *App) Actions() *operations.Actions {
	return operations.NewActions(a.Coordinator, a.DateParser(), a.Config.Remote.Name)
}

// DateParser returns a parser accepting the configured date format
func (a *App) DateParser() *operations.DateParser {
	return operations.NewDateParser(a.Config.GetDateFormat())
}

// Status collects what the status command shows
func (a *App) Status() cli.StatusInfo {
	snap := a.Coordinator.Status()
	info := cli.StatusInfo{
		Remote:      a.Config.Remote.Name,
		URL:         a.Config.Remote.URL,
		Offline:     a.Offline,
		Backend:     a.Config.Cache.Backend,
		Destination: a.Config.Cache.Destination,
		Items:       len(snap.Items),
		Revision:    snap.Revision,
		State:       snap.State.String(),
		Dirty:       snap.Dirty,
		Pending:     snap.Pending,
	}
	if stamp, err := cache.LoadSyncStamp(a.Config.Cache.Destination); err == nil {
		info.LastSync = &stamp
		info.Stale = a.Config.Sync.Interval > 0 && stamp.IsStale(a.Config.Sync.Interval, time.Now())
	}
	return info
}

// SpawnSyncIfPending starts a detached sync when changes are still waiting
// for the remote and the configuration asks for it
func (a *App) SpawnSyncIfPending() {
	if a.Offline || !a.Config.Sync.SpawnOnExit || a.Coordinator.Status().Pending == 0 {
		return
	}
	if err := operations.SpawnBackgroundSync(a.ConfigPath); err != nil {
		a.Logger.Warn("Failed to start background sync: %v", err)
		return
	}
	a.Logger.Debug("Background sync started")
}

// Close shuts the coordinator down and releases the cache store
func (a *App) Close() error {
	var errs []error
	if a.Coordinator != nil {
		if err := a.Coordinator.Shutdown(a.Config.Sync.ShutdownTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.ownsLogger {
		_ = a.Logger.Close()
	}
	return errors.Join(errs...)
}

// resolveDeviceID returns configured, or a generated id persisted in the
// data directory so that every run of this installation reports the same one
func resolveDeviceID(configured string) (string, error) {
	if id := strings.TrimSpace(configured); id != "" {
		return id, nil
	}

	dir, err := utils.AppDir(utils.DataDir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "device_id")

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	return id, nil
}

// offlineRemote fails every call at once with a transport error, so the
// coordinator keeps local changes pending exactly as when the network is down
type offlineRemote struct{}

func (offlineRemote) List(ctx context.Context, revision int64) (backend.ListResult, error) {
	return backend.ListResult{}, backend.NewTransportError(backend.OpList, ErrOffline)
}

func (offlineRemote) BulkUpdate(ctx context.Context, revision int64, tasks []backend.Task) (backend.ListResult, error) {
	return backend.ListResult{}, backend.NewTransportError(backend.OpBulkUpdate, ErrOffline)
}

func (offlineRemote) Get(ctx context.Context, revision int64, id string) (backend.ItemResult, error) {
	return backend.ItemResult{}, backend.NewTransportError(backend.OpGet, ErrOffline)
}

func (offlineRemote) Add(ctx context.Context, revision int64, task backend.Task) (backend.ItemResult, error) {
	return backend.ItemResult{}, backend.NewTransportError(backend.OpAdd, ErrOffline)
}

func (offlineRemote) Edit(ctx context.Context, revision int64, task backend.Task) (backend.ItemResult, error) {
	return backend.ItemResult{}, backend.NewTransportError(backend.OpEdit, ErrOffline)
}

func (offlineRemote) Delete(ctx context.Context, revision int64, id string) (backend.ItemResult, error) {
	return backend.ItemResult{}, backend.NewTransportError(backend.OpDelete, ErrOffline)
}
