package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCmd_PolicyCheck(t *testing.T) {
	tests := []struct {
		args    []string
		verbose bool
		want    string
		denied  bool
	}{
		{[]string{"getinfo"}, false, "allow\n", false},
		{[]string{"getblock", `["00ab", true]`}, false, "allow\n", false},
		{[]string{"stop"}, false, "deny (unknown_method)\n", true},
		{[]string{"getinfo", `[1]`}, false, "deny (arity)\n", true},
		{[]string{"sendcurrency", `["*", [], 1, 0.1, false]`}, false, "deny (guard)\n", true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)

			err := checkPolicy(cmd, tt.args, tt.verbose)
			if tt.denied != errors.Is(err, ErrDenied) {
				t.Fatalf("checkPolicy(%q) error = %v; denied want %v", tt.args, err, tt.denied)
			}
			if out.String() != tt.want {
				t.Errorf("checkPolicy(%q) printed %q; want %q", tt.args, out.String(), tt.want)
			}
		})
	}
}

func TestCmd_PolicyCheckVerbose(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	_ = checkPolicy(cmd, []string{"getinfo", `[1]`}, true)
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Errorf("verbose output %q; want the decision and the reason", out.String())
	}
}

func TestCmd_PolicyCheckBadParams(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := checkPolicy(cmd, []string{"getinfo", `{"a":1}`}, false)
	if err == nil || errors.Is(err, ErrDenied) {
		t.Fatalf("checkPolicy with object params = %v; want a usage error", err)
	}
}
