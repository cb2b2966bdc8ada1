package cmd

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moselab/netbed/common"
	"github.com/moselab/netbed/connector"
	"github.com/moselab/netbed/executor"
	"github.com/moselab/netbed/logger"
	"github.com/moselab/netbed/logsink"
)

var (
	execAddr      string
	execPort      int
	execUser      string
	execPassword  string
	execKeyFile   string
	execLocal     bool
	execElevation string
	execRunAs     string
	execShell     string
	execTimeout   time.Duration
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- command [args...]",
	Short: "Run a single command on one node",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Log.WithField(common.LogFieldApp, common.AppName)
		strategy := executor.ElevationStrategy(execElevation)

		var exec executor.Executor
		if execLocal {
			exec = executor.NewLocalExecutor("local", strategy, log)
		} else {
			if execAddr == "" {
				return errors.New("--addr is required unless --local is set")
			}
			conn, err := connector.NewConnection(connector.Config{
				Username: execUser,
				Password: execPassword,
				Address:  execAddr,
				Port:     execPort,
				KeyFile:  execKeyFile,
				Timeout:  execTimeout,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			exec, err = executor.NewSSHExecutor(execAddr, conn, strategy, log)
			if err != nil {
				return err
			}
		}

		// Stream the command's output straight to the controller's own
		// stdout/stderr.
		stdoutSink := logsink.NewWriter("stdout", nopCloser{os.Stdout}, logrus.InfoLevel)
		stderrSink := logsink.NewWriter("stderr", nopCloser{os.Stderr}, logrus.ErrorLevel)
		defer stdoutSink.Close()
		defer stderrSink.Close()

		outcome, err := exec.Execute(cmd.Context(), executor.Request{
			Command: args,
			User:    execRunAs,
			Shell:   execShell,
			Stdout:  stdoutSink,
			Stderr:  stderrSink,
		})
		if err != nil {
			return err
		}
		if outcome.ExitCode != 0 {
			return errors.Errorf("command exited with status %d", outcome.ExitCode)
		}
		return nil
	},
}

// nopCloser keeps the process streams open when the sinks are released.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func init() {
	execCmd.Flags().StringVar(&execAddr, "addr", "", "target host address")
	execCmd.Flags().IntVar(&execPort, "port", 22, "target host SSH port")
	execCmd.Flags().StringVar(&execUser, "user", "root", "SSH user")
	execCmd.Flags().StringVar(&execPassword, "password", "", "SSH password")
	execCmd.Flags().StringVar(&execKeyFile, "key", "", "path to SSH private key")
	execCmd.Flags().BoolVar(&execLocal, "local", false, "run the command locally instead of over SSH")
	execCmd.Flags().StringVar(&execElevation, "elevation", "sudo", "elevation strategy for --run-as (sudo or su)")
	execCmd.Flags().StringVar(&execRunAs, "run-as", "", "run the command as this user")
	execCmd.Flags().StringVar(&execShell, "shell", "", "shell interpreter to wrap the command in")
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 30*time.Second, "SSH connection timeout")
	rootCmd.AddCommand(execCmd)
}
