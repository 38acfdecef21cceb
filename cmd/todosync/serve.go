package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"todosync/internal/mockserver"
)

func newServeMockCmd() *cobra.Command {
	var (
		addr string
		opts mockserver.Options
	)

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run an in-memory list service for local testing",
		Long: `Run an in-memory list service speaking the remote protocol. Nothing is
persisted; the list is empty and the revision starts at --revision.

Point remote.url at it to try todosync without a real service:
  todosync serve-mock --addr 127.0.0.1:8080 --token secret
  TODOSYNC_REMOTE_URL=http://127.0.0.1:8080 TODOSYNC_DEFAULT_TOKEN=secret todosync sync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mockserver.New(opts)
			fmt.Fprintf(cmd.ErrOrStderr(), "Mock list service on %s (revision %d)\n", addr, opts.Revision)
			return server.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&opts.Token, "token", "", "Required token (empty accepts any request)")
	cmd.Flags().Int64Var(&opts.Revision, "revision", 0, "Starting revision")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Log every request")
	return cmd
}
