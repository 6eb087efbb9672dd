package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/rotor-sim/rotor-sim/sim"
	"github.com/rotor-sim/rotor-sim/sim/workload"
)

var (
	configPath string // Config file (key/value text or YAML); defaults used when empty
	outputPath string // Results CSV path
	logLevel   string // Log verbosity level
)

// rootCmd runs the simulation directly: rotorsim -f <config> [-o <results.csv>]
var rootCmd = &cobra.Command{
	Use:   "rotorsim",
	Short: "Discrete-event packet simulator for rotor-switched optical fabrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := sim.DefaultConfig()
		if configPath != "" {
			cfg, err = sim.LoadConfig(configPath)
			if err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logrus.Infof("Starting run %s", uuid.NewString())
		cfg.Log()

		// Load or generate the flow list
		var flows []*sim.Flow
		if cfg.FlowFile != "" {
			flows, err = workload.LoadFlows(cfg.FlowFile)
			if err != nil {
				return err
			}
		} else {
			flows = workload.NewGenerator(&cfg).GenerateFlows()
			if cfg.SaveFlows {
				if err := workload.SaveFlows(flows, cfg.FlowOutputFile); err != nil {
					return err
				}
			}
		}

		s := sim.NewSimulator(&cfg, flows)
		s.Run()

		s.Stats.Print()
		if err := s.Stats.SaveToFile(outputPath); err != nil {
			return err
		}
		logrus.Infof("Results saved to %s", outputPath)
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorf("%v", err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "f", "", "Config file (key/value text or YAML); built-in defaults when omitted")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "results.csv", "Results CSV path")
	rootCmd.Flags().StringVar(&logLevel, "log", "warning", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
