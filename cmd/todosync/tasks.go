package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todosync/backend"
	"todosync/internal/app"
	"todosync/internal/cli"
	"todosync/internal/operations"
	"todosync/internal/utils"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		showIDs bool
		format  string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "Show tasks from the local cache",
		Long: `Show tasks from the local cache.

Examples:
  todosync list                     # Open tasks
  todosync list -s a                # All tasks
  todosync list -s o                # Overdue tasks
  todosync list -p high,normal      # Filter by priority
  todosync list --search milk --ids # Search, with ids for edit/done/rm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := operations.BuildFilter(cmd)
			if err != nil {
				return err
			}
			outFormat, err := utils.ParseFormat(format)
			if err != nil {
				return err
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks := operations.FilterTasks(a.Coordinator.Items(), filter, time.Now())
				if outFormat != utils.FormatText {
					return utils.Write(cmd.OutOrStdout(), outFormat, tasks)
				}

				cli.RenderTasks(cmd.OutOrStdout(), a.Config.Cache.Destination, tasks, cli.RenderOptions{
					DateFormat: a.Config.GetDateFormat(),
					ShowIDs:    showIDs,
				})
				return nil
			})
		},
	}

	cmd.Flags().StringP("status", "s", "todo", "Status filter: all/a, todo/t, done/d, overdue/o")
	cmd.Flags().StringArrayP("priority", "p", nil, "Priority filter (repeatable or comma separated)")
	cmd.Flags().String("search", "", "Only tasks whose text contains this")
	cmd.Flags().BoolVar(&showIDs, "ids", false, "Show task ids")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var in operations.TaskInput

	cmd := &cobra.Command{
		Use:     "add <text>...",
		Aliases: []string{"a"},
		Short:   "Add a task",
		Long: `Add a task. The words of the arguments form its text.

Examples:
  todosync add Buy milk
  todosync add Call mom -p high --due tomorrow
  todosync add "Pay rent" --due 2026-11-01`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Text = strings.Join(args, " ")
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Actions().HandleAdd(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s\n", operations.ShortID(res.Task.ID), res.Task.Text)
				warn(cmd.ErrOrStderr(), res.Warning)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Priority, "priority", "p", "normal", "Priority: low/l, normal/n, high/h")
	cmd.Flags().StringVarP(&in.Due, "due", "d", "", "Deadline: YYYY-MM-DD or a phrase like 'next friday'")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var text, priority, due string

	cmd := &cobra.Command{
		Use:     "edit <id>",
		Aliases: []string{"e"},
		Short:   "Change a task",
		Long: `Change the text, priority or deadline of a task. The id may be any
unique prefix.

Examples:
  todosync edit 3f2a --text "Buy oat milk"
  todosync edit 3f2a -p low --due none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in operations.EditInput
			if cmd.Flags().Changed("text") {
				in.Text = &text
			}
			if cmd.Flags().Changed("priority") {
				in.Priority = &priority
			}
			if cmd.Flags().Changed("due") {
				in.Due = &due
			}
			if in.Empty() {
				return fmt.Errorf("nothing to change: use --text, --priority or --due")
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Actions().HandleEdit(ctx, args[0], in)
				if errors.Is(err, operations.ErrNothingToChange) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is unchanged\n", operations.ShortID(res.Task.ID))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", operations.ShortID(res.Task.ID), res.Task.Text)
				warn(cmd.ErrOrStderr(), res.Warning)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "New text")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority: low/l, normal/n, high/h")
	cmd.Flags().StringVarP(&due, "due", "d", "", "New deadline, or 'none' to clear it")
	cmd.ValidArgsFunction = cli.TaskIDCompletion(opts.cachedTasks, true, 1)
	return cmd
}

// newDoneCmd builds `done` (done=true) and `undone`
func newDoneCmd(opts *rootOptions, done bool) *cobra.Command {
	use, short, verb := "done <id>...", "Mark tasks as done", "Completed"
	aliases := []string{"d", "complete"}
	if !done {
		use, short, verb = "undone <id>...", "Mark tasks as not done", "Reopened"
		aliases = []string{"reopen"}
	}

	cmd := &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				actions := a.Actions()
				for _, ref := range args {
					res, err := actions.HandleSetDone(ctx, ref, done)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", verb, operations.ShortID(res.Task.ID), res.Task.Text)
					warn(cmd.ErrOrStderr(), res.Warning)
				}
				return nil
			})
		},
	}
	cmd.ValidArgsFunction = cli.TaskIDCompletion(opts.cachedTasks, !done, 0)
	return cmd
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				actions := a.Actions()
				for _, ref := range args {
					task, err := operations.FindByID(a.Coordinator.Items(), ref)
					if err != nil {
						return err
					}
					if !yes && !utils.PromptYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %q?", task.Text)) {
						fmt.Fprintf(cmd.OutOrStdout(), "Kept %s\n", operations.ShortID(task.ID))
						continue
					}

					res, err := actions.HandleRemove(ctx, task.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", operations.ShortID(res.Task.ID), res.Task.Text)
					warn(cmd.ErrOrStderr(), res.Warning)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.ValidArgsFunction = cli.TaskIDCompletion(opts.cachedTasks, true, 0)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every cached task as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := utils.ParseFormat(format)
			if err != nil {
				return err
			}
			if outFormat == utils.FormatText {
				return fmt.Errorf("export supports json and yaml")
			}

			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tasks := a.Coordinator.Items()
				if output == "" || output == "-" {
					return utils.Write(cmd.OutOrStdout(), outFormat, tasks)
				}

				path, err := utils.ExpandPath(output)
				if err != nil {
					return err
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				if err := utils.Write(f, outFormat, tasks); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(tasks), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// cachedTasks reads the local cache without contacting the remote, for
// shell completion
func (o *rootOptions) cachedTasks() ([]backend.Task, error) {
	offline := *o
	offline.offline = true
	a, err := offline.openApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if err := a.Coordinator.LoadCache(); err != nil {
		return nil, err
	}
	return a.Coordinator.Items(), nil
}
