// Command natal-symphony serves the natal chart to music API and composes
// single charts from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "natal-symphony",
		Short:         "Turn birth charts into symphony briefs and audio",
		SilenceUsage:  true,
		// Serving is the default.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "natal-symphony.yaml", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newServeCmd(opts), newComposeCmd(opts))
	return cmd
}

// load reads the configuration and builds the logger it asks for.
func (o *rootOptions) load(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(ctx, o.configPath, envconfig.OsLookuper())
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if o.verbose {
		level = "debug"
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	zc.Level = lvl
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}
