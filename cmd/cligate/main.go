// Command cligate runs the command gateway: as an HTTP session host, as a
// one-shot executor or as an interactive console.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/infrastructure/settingsstore"
	"github.com/reglet-dev/cligate/infrastructure/telemetry"
	cligatelog "github.com/reglet-dev/cligate/log"
	"github.com/spf13/cobra"
)

const serviceName = "cligate"

// app carries the state shared by every subcommand once the root flags are
// parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	storeSpec  string
	idFormat   string
	tick       time.Duration
	environ    map[string]string // nil reads the process environment

	logger   *slog.Logger
	settings entities.Settings
	shutdown func(context.Context) error
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(environ map[string]string) *cobra.Command {
	a := &app{environ: environ}

	rootCmd := &cobra.Command{
		Use:           "cligate",
		Short:         "Authorization and execution gateway for operator commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.shutdown(ctx)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (default $HOME/.cligate/settings.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&a.storeSpec, "store", "memory", `document store: "memory" or the path of a SQLite file`)
	flags.StringVar(&a.idFormat, "id-format", "plain", "ownership identifier format: plain or objectid")
	flags.DurationVar(&a.tick, "tick", time.Second, "initial simulation tick duration")

	rootCmd.AddCommand(
		serveCmd(a),
		execCmd(a),
		consoleCmd(a),
		seedCmd(a),
		configCmd(a),
	)
	return rootCmd
}

// init builds the logger, loads settings and starts tracing.
func (a *app) init(ctx context.Context, stderr io.Writer) error {
	level, err := cligatelog.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	format, err := cligatelog.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}
	a.logger = cligatelog.New(
		cligatelog.WithLevel(level),
		cligatelog.WithFormat(format),
		cligatelog.WithWriter(stderr),
	)

	a.settings, err = a.settingsStore().Load()
	if err != nil {
		return err
	}

	otelCfg, err := telemetry.ConfigFromEnv(a.environ)
	if err != nil {
		return fmt.Errorf("telemetry config: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.shutdown, err = telemetry.Setup(ctx, serviceName, otelCfg)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	return nil
}

func (a *app) settingsStore() *settingsstore.FileStore {
	var opts []settingsstore.FileStoreOption
	if a.configPath != "" {
		opts = append(opts, settingsstore.WithPath(a.configPath))
	}
	if a.environ != nil {
		opts = append(opts, settingsstore.WithEnvironment(a.environ))
	}
	return settingsstore.NewFileStore(opts...)
}
