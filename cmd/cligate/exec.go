package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/reglet-dev/cligate/infrastructure/console"
	"github.com/reglet-dev/cligate/infrastructure/prompter"
	"github.com/spf13/cobra"
)

// errFailed reports an errored execution through the exit status. The
// console output already carries the reason.
var errFailed = errors.New("command failed")

func execCmd(a *app) *cobra.Command {
	var (
		user     string
		asJSON   bool
		withSeed bool
		failExit bool
	)
	cmd := &cobra.Command{
		Use:   "exec <code>...",
		Short: "Execute one command as a caller and print its console output",
		Long: `Execute one command as a caller and print its console output.
The arguments are joined with spaces. A single "-" reads the command from stdin.`,
		Example: `  cligate exec --user 9 --seed "storage.db.rooms.count({})"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.Join(args, " ")
			if code == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				code = string(raw)
			}

			db, closeDB, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()
			if withSeed {
				if _, err := seedWorld(cmd.Context(), db); err != nil {
					return err
				}
			}

			var opts []console.WriterOption
			if asJSON {
				opts = append(opts, console.WithJSON())
			}
			sup, err := a.newSupervisor(db, console.NewWriter(cmd.OutOrStdout(), opts...))
			if err != nil {
				return err
			}

			res := sup.Run(cmd.Context(), user, code)
			if res.Errored && failExit {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "caller identity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print console messages as JSON")
	cmd.Flags().BoolVar(&withSeed, "seed", false, "load the demo world before executing")
	cmd.Flags().BoolVar(&failExit, "fail", false, "exit non-zero when the command errors or is rejected")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func consoleCmd(a *app) *cobra.Command {
	var (
		user     string
		withSeed bool
	)
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Read commands line by line and execute them as a caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()
			if withSeed {
				if _, err := seedWorld(cmd.Context(), db); err != nil {
					return err
				}
			}

			sup, err := a.newSupervisor(db, console.NewWriter(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			p := prompter.NewCliPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).WithPrompt(user + "> ")
			return p.Loop(cmd.Context(), func(ctx context.Context, code string) error {
				sup.Run(ctx, user, code)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "caller identity")
	cmd.Flags().BoolVar(&withSeed, "seed", false, "load the demo world first")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
