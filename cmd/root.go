package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/akyaiy/verusgate/hooks"
	"github.com/akyaiy/verusgate/internal/core/corestate"
	"github.com/akyaiy/verusgate/internal/engine/logs"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "verusgate",
	Short: "Allowlisting JSON-RPC gateway for a Verus node",
	Long: `verusgate sits in front of a Verus daemon and forwards only the calls
its allowlist accepts. Everything else is answered with "Method not found".`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	log.SetOutput(os.Stdout)
	log.SetPrefix(logs.SetBrightBlack(fmt.Sprintf("(%s) ", corestate.StageNotReady)))
	log.SetFlags(log.Ldate | log.Ltime)
	hooks.Compositor.LoadCMDLine(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
