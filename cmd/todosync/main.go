package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"todosync/internal/app"
)

// rootOptions holds the global flags
type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
	offline    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "todosync",
		Short: "To-do list synchronised with a remote list service",
		Long: `todosync keeps a local to-do list in sync with a revision-versioned
remote list service. Every change is applied to the local cache first and
sent to the remote right after; when the remote cannot be reached the change
stays pending until the next 'todosync sync'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.config/todosync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Dotenv file loaded before the config (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Work on the local cache only")

	rootCmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newDoneCmd(opts, true),
		newDoneCmd(opts, false),
		newRemoveCmd(opts),
		newExportCmd(opts),
		newSyncCmd(opts),
		newRefreshCmd(opts),
		newStatusCmd(opts),
		newWatchCmd(opts),
		newCredentialsCmd(opts),
		newServeMockCmd(),
	)
	return rootCmd
}

// openApp assembles the application from the global flags
func (o *rootOptions) openApp() (*app.App, error) {
	return app.NewApp(app.Options{
		ConfigPath: o.configPath,
		EnvFile:    o.envFile,
		Verbose:    o.verbose,
		Offline:    o.offline,
	})
}

// withApp opens the app, loads and syncs the cache and runs fn. A remote
// failure while starting is reported and fn still runs on the cached tasks.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := o.openApp()
	if err != nil {
		return err
	}
	defer func() {
		a.SpawnSyncIfPending()
		if err := a.Close(); err != nil {
			a.Logger.Warn("Shutdown: %v", err)
		}
	}()

	ctx := cmd.Context()
	if err := a.Start(ctx); err != nil {
		warn(cmd.ErrOrStderr(), explain(err, a))
	}
	return fn(ctx, a)
}

// warn prints a non-fatal problem
func warn(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
