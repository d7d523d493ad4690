package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath = "meshwatch.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshwatch",
	Short: "Meshtastic mesh network observer",
	Long: `Meshwatch observes a Meshtastic radio mesh by tailing the meshtasticd
debug log (or a serial-connected device), extracts structured events from the
free-form text and keeps a persistent model of nodes, links and packet traffic.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "observer config file")
}
