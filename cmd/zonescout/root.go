package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zonescout/internal/app"
	"zonescout/internal/platform/config"
	"zonescout/internal/platform/logger"
	"zonescout/internal/research/models"
)

// analyzer runs one research pipeline.
type analyzer interface {
	Run(ctx context.Context, streetName, houseNumber string, userQueries []string) (*models.Result, error)
}

// buildFunc builds the analyzer from configuration. The returned func
// releases whatever the analyzer opened.
type buildFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (analyzer, func() error, error)

func buildAnalyzer(ctx context.Context, cfg config.Config, logger *slog.Logger) (analyzer, func() error, error) {
	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(build buildFunc) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "zonescout",
		Short: "Research what can be built on a Los Angeles property",
		Long: `zonescout combines the official ZIMAS parcel profile, web search and an LLM
into a short development brief for one Los Angeles address.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(newAnalyzeCmd(opts, build))
	return root
}

// loadConfig reads the config file named by --config, falling back to
// CONFIG_PATH, then applies environment overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return config.Load(path)
}

func (o *rootOptions) logger(cfg config.Config) *slog.Logger {
	logCfg := cfg.Log
	logCfg.Format = "text"
	if !o.verbose {
		logCfg.Level = "error"
	}
	return logger.NewWithWriter(os.Stderr, logCfg)
}
