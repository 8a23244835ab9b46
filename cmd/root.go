// Package cmd defines the CLI commands for the maintenance-collector executable.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/logging"
	"github.com/JakeFAU/toyota-maintenance-collector/pkg/config"
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	logger  *zap.Logger
	out     io.Writer
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance-collector",
		Short: "Collects Toyota maintenance schedules, vehicle specs and service specs.",
		Long: `maintenance-collector walks every (source, model, year) combination of the
Toyota catalog, fetching maintenance guides from Toyota, vehicle records from
FuelEconomy.gov and service specs for each model year. Progress is
checkpointed after every unit so an interrupted run resumes where it stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitConfig(c.v, c.cfgFile); err != nil {
				return &collector.ConfigError{Field: "config", Reason: err.Error()}
			}
			logger, err := logging.New(c.v.GetBool("logging.development"), c.v.GetBool("logging.verbose"))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.logger = logger
			zap.ReplaceGlobals(logger)
			logConfigSource(logger, c.v)
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	cmd.SetOut(c.out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/maintenance-collector/, $HOME/.maintenance-collector)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.String("output-dir", "output", "directory for datasets, checkpoint and raw documents")
	_ = c.v.BindPFlag("logging.verbose", flags.Lookup("verbose"))
	_ = c.v.BindPFlag("output.dir", flags.Lookup("output-dir"))

	cmd.AddCommand(newCollectCmd(c))
	cmd.AddCommand(newStatusCmd(c))
	cmd.AddCommand(newModelsCmd(c))
	return cmd
}

// Execute runs the CLI and returns the process exit code. Only configuration
// errors and setup failures are non-zero; failed units are reported in the
// run summary.
func Execute() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	c := &cli{v: viper.New(), out: stdout}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		if errors.Is(err, collector.ErrConfiguration) {
			return ExitConfigError
		}
		return ExitFailure
	}
	return ExitOK
}

func (c *cli) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func logConfigSource(logger *zap.Logger, v *viper.Viper) {
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info("using config file", zap.String("path", used))
		return
	}
	logger.Debug("config file not found; using defaults and environment variables")
}
