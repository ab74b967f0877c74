package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/akyaiy/verusgate/hooks"
	"github.com/akyaiy/verusgate/internal/engine/config"
	"github.com/akyaiy/verusgate/internal/server/audit"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the most recent denied calls",
	Long: `
"audit" reads the denial log kept when audit.enabled is set in the configuration file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printAudit(cmd, hooks.Compositor)
	},
}

func printAudit(cmd *cobra.Command, c *config.Compositor) error {
	if err := c.LoadEnv(); err != nil {
		return err
	}
	cfgPath := *c.Env.ConfigPath
	if c.CMDLine.Audit.ConfigPath != "" {
		cfgPath = c.CMDLine.Audit.ConfigPath
	}
	if err := c.LoadConf(cfgPath); err != nil {
		return err
	}

	// same resolution as "run", so both open one database
	store, err := audit.Open(c.NodeRelative(*c.Conf.Audit.Path))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), c.CMDLine.Audit.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREMOTE\tMETHOD\tREASON\tPOSITION")
	for _, e := range entries {
		pos := "-"
		if e.Position >= 0 {
			pos = fmt.Sprint(e.Position)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Time.Format(time.RFC3339), e.Remote, e.Method, e.Reason, pos)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
