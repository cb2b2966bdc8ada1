package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moselab/netbed/common"
	"github.com/moselab/netbed/config"
	"github.com/moselab/netbed/logger"
	"github.com/moselab/netbed/testbed"
)

var (
	runConfigPath string
	runFailFast   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the steps of a testbed configuration on its nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(runConfigPath).Load()
		if err != nil {
			return err
		}

		log := logger.Log.WithField(common.LogFieldApp, common.AppName)

		tb, err := testbed.New(cfg, log)
		if err != nil {
			return err
		}
		defer tb.Close()
		tb.SetFailFast(runFailFast)

		results, err := tb.Run(cmd.Context(), cfg.Spec.Steps)
		if err != nil {
			return err
		}

		failed := 0
		for _, res := range results {
			if res.Failed() {
				failed++
			}
		}
		log.Infof("run %s finished: %d step result(s), %d failed, logs in %s",
			tb.RunDir().ID(), len(results), failed, tb.RunDir().Path())
		if failed > 0 {
			return errors.Errorf("%d step(s) failed", failed)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to the testbed configuration file (required)")
	_ = runCmd.MarkFlagRequired("config")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop at the first failed step")
	rootCmd.AddCommand(runCmd)
}
