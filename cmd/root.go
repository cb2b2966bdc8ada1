package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moselab/netbed/logger"
)

var (
	logLevelStr string
	verbose     bool
	logOutput   string
)

var rootCmd = &cobra.Command{
	Use:   "netbed",
	Short: "netbed runs commands on distributed testbed nodes",
	Long: `netbed provisions executors for the nodes of a network testbed and runs
commands on them, draining each command's output streams into per-run log
files. Nodes are reached over SSH (optionally through a bastion) or run
locally on the controller.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevelStr)
		if err != nil {
			logger.Log.Warnf("invalid log level '%s', defaulting to 'info': %v", logLevelStr, err)
			level = logrus.InfoLevel
		}
		return logger.Init(logOutput, verbose, level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelStr, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "directory for the controller's own rotated log file (default: console)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
