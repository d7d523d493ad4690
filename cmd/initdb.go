package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshwatch/meshwatch/core"
	"github.com/meshwatch/meshwatch/state"
)

// initdbCmd represents the initdb command
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the network database",
	Long:  `Create the sqlite database file and its schema. Safe to run on an existing database.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.LoadConfig(configPath)
		if err != nil {
			panic(err)
		}
		if err := core.InitDB(cfg); err != nil {
			panic(err)
		}
		fmt.Println("Database successfully created.")
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
