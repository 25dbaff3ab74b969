package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/ysocial-sim/ysocial-sim/sim"
)

var defaultConfigOutput string // Output path; empty prints to stdout

// defaultConfigCmd emits the baseline configuration as a starting scaffold.
var defaultConfigCmd = &cobra.Command{
	Use:   "default-config",
	Short: "Print the default simulation configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := yaml.Marshal(sim.DefaultConfig())
		if err != nil {
			logrus.Fatalf("Cannot render default configuration: %v", err)
		}
		if defaultConfigOutput == "" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(defaultConfigOutput, data, 0o644); err != nil {
			logrus.Fatalf("Cannot write %s: %v", defaultConfigOutput, err)
		}
		logrus.Infof("Default configuration written to %s", defaultConfigOutput)
	},
}

func init() {
	defaultConfigCmd.Flags().StringVar(&defaultConfigOutput, "output", "", "File to write instead of stdout")
	rootCmd.AddCommand(defaultConfigCmd)
}
