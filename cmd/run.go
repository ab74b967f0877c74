package cmd

import (
	"github.com/akyaiy/verusgate/hooks"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"r"},
	Short:   "Run the gateway",
	Long: `
"run" starts the gateway with settings depending on the configuration file`,
	Args: cobra.NoArgs,
	Run:  hooks.Run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}
