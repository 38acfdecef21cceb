package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"todosync/internal/app"
	"todosync/internal/credentials"
	"todosync/internal/utils"
)

func newCredentialsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage remote tokens",
		Long: `Manage the token sent to the remote list service.

A token is looked up in this order:
  1. System keyring (todosync credentials set)
  2. Environment variable TODOSYNC_<REMOTE>_TOKEN
  3. remote.token in the config file (not recommended)

Examples:
  # Store a token in the keyring (interactive prompt)
  todosync credentials set default --prompt

  # Check where the token comes from
  todosync credentials get

  # Remove the token from the keyring
  todosync credentials delete default`,
	}

	cmd.AddCommand(newCredentialsSetCmd(opts))
	cmd.AddCommand(newCredentialsGetCmd(opts))
	cmd.AddCommand(newCredentialsDeleteCmd(opts))
	return cmd
}

// remoteName returns the remote named in args, or the configured one
func (o *rootOptions) remoteName(args []string) (string, string, error) {
	cfg, _, err := app.LoadConfig(o.configPath, o.envFile)
	if err != nil {
		return "", "", err
	}
	if len(args) > 0 && args[0] != "" {
		if args[0] == cfg.Remote.Name {
			return args[0], cfg.Remote.Token, nil
		}
		return args[0], "", nil
	}
	return cfg.Remote.Name, cfg.Remote.Token, nil
}

func newCredentialsSetCmd(opts *rootOptions) *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "set <remote> [token]",
		Short: "Store a token in the system keyring",
		Long: `Store the token for a remote in the system keyring.

Use --prompt to type the token without echo; a token given as an argument
ends up in the shell history.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName := args[0]

			var token string
			switch {
			case prompt:
				secret, err := utils.PromptSecret(fmt.Sprintf("Token for %s: ", remoteName))
				if err != nil {
					return err
				}
				token = secret
			case len(args) == 2:
				token = args[1]
			default:
				return fmt.Errorf("token is required (use --prompt for interactive input)")
			}
			if token == "" {
				return fmt.Errorf("token cannot be empty")
			}

			if err := credentials.Set(remoteName, token); err != nil {
				if !credentials.IsAvailable() {
					return fmt.Errorf("system keyring is not available. Use an environment variable instead:\n  export %s=<token>",
						credentials.TokenEnvVar(remoteName))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Token stored for %s (%s)\n", remoteName, credentials.Mask(token))
			return nil
		},
	}

	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for the token interactively (recommended)")
	return cmd
}

func newCredentialsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [remote]",
		Short: "Show where the token for a remote comes from",
		Long: `Show which source provides the token for a remote. The token itself
is masked. Without an argument the configured remote is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName, configToken, err := opts.remoteName(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			creds, err := credentials.NewResolver(nil).Resolve(remoteName, configToken)
			if err != nil {
				fmt.Fprintf(out, "✗ No token found for remote %q\n", remoteName)
				return err
			}

			fmt.Fprintf(out, "✓ Token found for remote %q\n", remoteName)
			fmt.Fprintf(out, "  Token: %s\n", creds.Masked())
			fmt.Fprintf(out, "  Source: %s\n", creds.Source)

			switch creds.Source {
			case credentials.SourceEnv:
				fmt.Fprintf(out, "\n⚠ Using %s\n", credentials.TokenEnvVar(remoteName))
				fmt.Fprintf(out, "  Consider the keyring: todosync credentials set %s --prompt\n", remoteName)
			case credentials.SourceConfig:
				fmt.Fprintln(out, "\n⚠ Using the token from the config file (not recommended)")
				fmt.Fprintf(out, "  Move it to the keyring: todosync credentials set %s --prompt\n", remoteName)
			}
			return nil
		},
	}
}

func newCredentialsDeleteCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [remote]",
		Short: "Remove a token from the system keyring",
		Long: `Remove the stored token of a remote from the system keyring.
Environment variables and the config file are not touched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName, _, err := opts.remoteName(args)
			if err != nil {
				return err
			}

			if !force && !utils.PromptYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete the token for %s?", remoteName)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			if err := credentials.Delete(remoteName); err != nil {
				if errors.Is(err, credentials.ErrNoToken) {
					fmt.Fprintf(cmd.OutOrStdout(), "No token stored for %s\n", remoteName)
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Token deleted for %s\n", remoteName)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}
