package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"todosync/backend"
	"todosync/internal/operations"
)

// TaskIDCompletion completes task id prefixes from the local cache. load is
// only called when completion is requested. Ids already on the command line
// are not offered again.
func TaskIDCompletion(load func() ([]backend.Task, error), includeDone bool, maxArgs int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if maxArgs > 0 && len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		tasks, err := load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		used := make(map[string]bool, len(args))
		for _, a := range args {
			used[strings.ToLower(a)] = true
		}

		var completions []string
		for _, c := range operations.CompleteIDs(tasks, toComplete, includeDone) {
			id, _, _ := strings.Cut(c, "\t")
			if used[strings.ToLower(id)] {
				continue
			}
			completions = append(completions, c)
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}
