package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/backend"
	"github.com/voxdeck/voxdeck/pkg/console"
	"github.com/voxdeck/voxdeck/pkg/kv"
)

var (
	verbose      bool
	formatOutput string
)

var rootCmd = &cobra.Command{
	Use:   "voxdeck",
	Short: "Operator CLI for the voxdeck agent platform",
	Long: `voxdeck — manage AI voice and chat agents from the terminal.

Commands:
  ctx       Context configuration management (file-based bootstrap)
  login     Sign in to the backend and persist the session
  apply     Declare and write resources from YAML
  list      List resources of a kind
  get       Get a resource by kind and name
  delete    Delete a resource by kind and name
  preset    Inspect presets and their realtime session config
  tools     Manage a preset's tool selection
  kb        Knowledge spaces, documents, and retrieval search
  chat      Chat sessions, transcripts, and the playground
  usage     Usage rollups per preset
  embed     Embed snippets for a published preset
  version   Version information

Resource kinds:
  preset, providerkey, connection, integration, space

Examples:
  voxdeck ctx add dev && voxdeck ctx use dev
  voxdeck ctx config set api https://backend.internal
  voxdeck login op@example.com --password secret
  voxdeck apply -f agents.yaml
  voxdeck list preset
  voxdeck tools list --preset support-bot`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, json, yaml, name")
}

// Test hooks. Command tests share one KV instance and point the client
// at a stub backend instead of the configured API.
var (
	testKVOverride     kv.Store
	testClientOverride *backend.Client
)

func openStore() (*console.ConfigStore, error) {
	if dir := os.Getenv("VOXDECK_CONFIG_DIR"); dir != "" {
		return console.OpenConfigStoreAt(dir)
	}
	return console.OpenConfigStore()
}

// openConsole creates a Console from the current ctx config.
func openConsole(ctx context.Context) (*console.Console, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	var opts []console.Option
	if testKVOverride != nil {
		opts = append(opts, console.WithKV(testKVOverride))
	}
	if testClientOverride != nil {
		opts = append(opts, console.WithClient(testClientOverride))
	}
	return console.New(ctx, store, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// orDash renders empty optional fields as a dash in table output.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
