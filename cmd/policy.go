package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akyaiy/verusgate/hooks"
	"github.com/akyaiy/verusgate/internal/server/allowlist"
	"github.com/spf13/cobra"
)

// ErrDenied makes "policy check" exit with a non-zero status.
var ErrDenied = errors.New("call denied")

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the allowlist",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every allowed method with its parameter shapes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, method := range allowlist.Methods() {
			p, _ := allowlist.Lookup(method)
			fmt.Fprintln(cmd.OutOrStdout(), p.Signature(method))
		}
	},
}

var policyCheckCmd = &cobra.Command{
	Use:   "check <method> [json-params]",
	Short: "Evaluate a call against the allowlist without a node",
	Example: `  verusgate policy check getblock '["00ab", true]'
  verusgate policy check -v sendcurrency '["*", [], 1, 0.1, false]'`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := checkPolicy(cmd, args, hooks.Compositor.CMDLine.Policy.Verbose)
		if err != nil && !errors.Is(err, ErrDenied) {
			cmd.PrintErrln("Error:", err)
		}
		return err
	},
}

func checkPolicy(cmd *cobra.Command, args []string, verbose bool) error {
	params := []json.RawMessage{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			return fmt.Errorf("params must be a JSON array: %w", err)
		}
	}

	err := allowlist.Check(args[0], params)
	if err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "allow")
		return nil
	}

	var deny *allowlist.DenyError
	if errors.As(err, &deny) {
		fmt.Fprintf(cmd.OutOrStdout(), "deny (%s)\n", deny.Reason)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "deny")
	}
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), err.Error())
	}
	return ErrDenied
}

func init() {
	policyCmd.AddCommand(policyListCmd, policyCheckCmd)
	rootCmd.AddCommand(policyCmd)
}
