package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:          "mcqa",
	Short:        "Quality control for microclimate datalogger series",
	Long:         "Cleans logger temperature series onto a regular grid, flags implausible values and sensor glitches, fills short gaps, and detects when a logger was deployed in the field.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		if f := cmd.Flags().Lookup("day-in-streak"); f != nil && f.Changed {
			cfg.Deploy.DayInStreak, _ = cmd.Flags().GetInt("day-in-streak")
		}

		return cfg.ValidateFor(cmd.Name())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
