package commands

import (
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestEnv points the command tree at a throwaway config dir. The
// env var and the dir clean themselves up when the test ends.
func setupTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VOXDECK_CONFIG_DIR", t.TempDir())
}

// runCmd executes one CLI invocation in-process and captures what it
// printed. Commands write straight to the process streams, so those are
// swapped for pipes around Execute.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW

	verbose = false
	formatOutput = "table"
	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	outW.Close()
	errW.Close()
	os.Stdout, os.Stderr = origOut, origErr

	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	stdout, stderr = string(outBytes), string(errBytes)
	if execErr != nil {
		exitCode = 1
		if stderr == "" {
			stderr = execErr.Error()
		}
	}

	resetFlags(rootCmd)
	return stdout, stderr, exitCode
}

// resetFlags walks the command tree restoring every flag to its
// default, so flags set by one invocation do not leak into the next.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
