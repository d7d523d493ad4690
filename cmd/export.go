package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meshwatch/meshwatch/core"
	"github.com/meshwatch/meshwatch/state"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the network report once",
	Long:  `Generate the network report from the current database without running the observer.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.LoadConfig(configPath)
		if err != nil {
			panic(err)
		}
		all, _ := cmd.Flags().GetBool("all")
		if err := core.Export(cfg, all); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Bool("all", false, "Export all nodes and links, not only those seen in the last 24 hours")
}
