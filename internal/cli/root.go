// Package cli wires the geomap commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/logging"
	"github.com/jengzang/geomap/internal/metrics"
)

// app carries state shared by every command of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewRootCmd builds the geomap command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "geomap",
		Short: "Render layered interactive maps from tabular data",
		Long: `geomap joins tabular records to geometry by a shared key or reads point
coordinates from them, derives colour bins and density weights, and exports
one self-contained HTML map per configured map spec.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./geomap.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: console or json")
	root.PersistentFlags().Int("parallel", 0, "maps rendered concurrently")

	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))
	_ = a.v.BindPFlag("parallel", root.PersistentFlags().Lookup("parallel"))

	root.AddCommand(
		newRenderCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newTokenCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// init reads the config file and environment and builds the logger
func (a *app) init(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("geomap")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	// Batch runs log from several goroutines
	a.logger = logging.NewWithWriter(zerolog.SyncWriter(cmd.ErrOrStderr()), cfg.LogLevel, cfg.LogFormat)
	a.metrics = metrics.New()

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("file", used).Msg("Using config file")
	}
	return nil
}

// logFormatExplicit reports whether the user chose a log format
func (a *app) logFormatExplicit(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("log-format") ||
		os.Getenv(config.EnvPrefix+"_LOG_FORMAT") != "" ||
		a.v.InConfig("log_format")
}
