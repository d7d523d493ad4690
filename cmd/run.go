package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meshwatch/meshwatch/core"
	"github.com/meshwatch/meshwatch/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the observer",
	Long: `Tail the debug log, extract events and keep the network database current.
Runs until SIGINT, SIGABRT or SIGTERM, or until the log source fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.LoadConfig(configPath)
		if err != nil {
			panic(err)
		}
		if dev, _ := cmd.Flags().GetString("dev"); dev != "" {
			cfg.Device = dev
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		if err := core.Start(cfg, level); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().String("dev", "", "Read from this serial device instead of the journal, i.e. /dev/ttyUSB0")
}
