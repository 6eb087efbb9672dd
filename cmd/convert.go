package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rotor-sim/rotor-sim/sim/workload"
)

var (
	convertMode   string
	convertInput  string
	convertOutput string
	convertHosts  int
)

// convertCmd transcodes flow traces between the opera-sim space-delimited
// format and the rotor flow CSV.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert flow traces between opera-sim and rotor CSV formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		if convertHosts < 1 {
			return fmt.Errorf("hosts-per-rack must be at least 1, got %d", convertHosts)
		}
		switch convertMode {
		case "opera2rotor":
			return workload.ConvertOperaToRotor(convertInput, convertOutput, convertHosts)
		case "rotor2opera":
			return workload.ConvertRotorToOpera(convertInput, convertOutput, convertHosts)
		default:
			return fmt.Errorf("unknown mode %q (want opera2rotor or rotor2opera)", convertMode)
		}
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertMode, "mode", "m", "", "Conversion mode: opera2rotor or rotor2opera")
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "Input trace file")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output trace file")
	convertCmd.Flags().IntVar(&convertHosts, "hosts-per-rack", 32, "Hosts per rack for global host id mapping")

	for _, flag := range []string{"mode", "input", "output"} {
		if err := convertCmd.MarkFlagRequired(flag); err != nil {
			logrus.Fatalf("convert: %v", err)
		}
	}

	rootCmd.AddCommand(convertCmd)
}
