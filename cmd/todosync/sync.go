package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"todosync/backend"
	"todosync/internal/app"
	"todosync/internal/cli"
	"todosync/internal/operations"
	tsync "todosync/internal/sync"
	"todosync/internal/utils"
)

// explain adds a suggestion to remote failures
func explain(err error, a *app.App) error {
	if operations.IsRemoteFailure(err) {
		return operations.ExplainRemoteError(err, a.Config.Remote.Name)
	}
	return err
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload the local cache and take the remote's canonical list",
		Long: `Upload every cached task with the last known revision. The remote
answers with its canonical list, which replaces the cache. A stale revision
is refreshed once and the upload retried.

With sync.policy: keep_pending, local changes the remote never acknowledged
survive the replacement and stay pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			before := 0
			if loadErr := a.Coordinator.LoadCache(); loadErr == nil || a.Offline {
				before = len(a.Coordinator.Items())
				err = a.Sync(ctx)
			} else {
				// Uploading an empty cache would wipe the remote list
				a.Logger.Info("No usable cache, seeding from the remote: %v", loadErr)
				err = a.Start(ctx)
			}
			if err != nil {
				return explain(err, a)
			}
			if !quiet {
				status := a.Coordinator.Status()
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d local tasks, %d after sync (revision %d)\n",
					before, len(status.Items), status.Revision)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing on success")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Merge the remote list into the cache without uploading",
		Long: `Fetch the remote list and merge it record by record: a remote record
edited later than the cached one wins, new remote records are added and
records gone from the remote are dropped. Changes still waiting for the
remote are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Refresh(ctx); err != nil {
					return explain(err, a)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed: %d tasks (revision %d)\n",
					len(a.Coordinator.Items()), a.Coordinator.Revision())
				return nil
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sync state of the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := utils.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Coordinator.LoadCache(); err != nil {
				a.Logger.Debug("No cache loaded: %v", err)
			}
			info := a.Status()
			if outFormat != utils.FormatText {
				return utils.Write(cmd.OutOrStdout(), outFormat, info)
			}
			cli.RenderStatus(cmd.OutOrStdout(), info, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing in the foreground and print the list on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.offline {
				return fmt.Errorf("watch needs the remote, drop --offline")
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				every := interval
				if every <= 0 {
					every = a.Config.Sync.Interval
				}
				if every <= 0 {
					return fmt.Errorf("sync interval must be positive (use --interval or sync.interval)")
				}

				render := func(items []backend.Task) {
					open := operations.FilterTasks(items, operations.Filter{Status: operations.StatusTodo}, time.Now())
					cli.RenderTasks(cmd.OutOrStdout(), a.Config.Cache.Destination, open, cli.RenderOptions{
						DateFormat: a.Config.GetDateFormat(),
						ShowIDs:    true,
					})
				}
				unsubscribe := a.Coordinator.Subscribe(tsync.ListenerFunc(render))
				defer unsubscribe()

				render(a.Coordinator.Items())
				a.Logger.Info("Syncing every %v, interrupt to stop", every)
				stop := a.Coordinator.StartPeriodicSync(every)
				defer stop()

				<-ctx.Done()
				return nil
			})
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Sync interval (default sync.interval)")
	return cmd
}
