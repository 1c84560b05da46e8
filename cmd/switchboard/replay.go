package main

import (
	"github.com/aretw0/switchboard/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a scripted scenario against a fresh engine",
	Long: `Builds an in-memory engine from the configuration, applies every step of
the scenario and checks its expectations. Exits non-zero when a step fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		report, _ := cmd.Flags().GetBool("report")
		quiet, _ := cmd.Flags().GetBool("quiet")

		return cli.Replay(cli.ReplayOptions{
			ConfigPath:   configPath,
			ScenarioPath: args[0],
			Debug:        debug,
			Report:       report,
			Quiet:        quiet,
		})
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("report", false, "Print a markdown summary after the replay")
	replayCmd.Flags().BoolP("quiet", "q", false, "Only report failures through the exit code")
}
