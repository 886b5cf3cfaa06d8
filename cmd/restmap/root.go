package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/config"
	"github.com/reoring/restmap/httptransport"
)

var (
	cfgFile  string
	logLevel string
	dump     bool
)

var rootCmd = &cobra.Command{
	Use:   "restmap",
	Short: "Fetch REST resources described in a YAML config",
	Long: `restmap maps JSON API responses onto the resource types declared in a
YAML config and prints them.

Examples:
  restmap get Order 42
  restmap list Order --param status=open --limit 10
  restmap get Customer c1 --dump`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "restmap.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides client.log_level)")
	rootCmd.PersistentFlags().BoolVar(&dump, "dump", false, "dump resources with spew instead of JSON")
}

// app is what every subcommand needs.
type app struct {
	reg *restmap.Registry
	m   *restmap.Manager
	log zerolog.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Level()
	if logLevel != "" {
		if level, err = zerolog.ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
	}
	log := zerolog.New(cmd.ErrOrStderr()).Level(level).With().Timestamp().Logger()

	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	tr, err := cfg.Requester(httptransport.WithLogger(log))
	if err != nil {
		return nil, err
	}
	m, err := cfg.Manager(tr, log)
	if err != nil {
		return nil, err
	}
	return &app{reg: reg, m: m, log: log}, nil
}

func (a *app) lookup(name string) (*restmap.Type, error) {
	t, ok := a.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown resource type %q", name)
	}
	return t, nil
}
