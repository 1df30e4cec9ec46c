package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/console"
)

var applyFile string

var applyCmd = &cobra.Command{
	Use:   "apply -f <file>",
	Short: "Create or update resources from YAML",
	Long: `Read resource documents from a YAML file and write them to the
platform. Each document carries a kind plus the resource fields; a
document whose name matches an existing row updates that row, any
other document creates one. A file may hold several documents
separated by ---, and '-' reads from stdin.

Kinds: preset, providerkey, connection, integration, space

Examples:
  voxdeck apply -f agents.yaml
  cat agents.yaml | voxdeck apply -f -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if applyFile == "" {
			return fmt.Errorf("no file given; use -f <file>, or -f - for stdin")
		}
		docs, err := console.ParseDocumentsFromFile(applyFile)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("%s holds no documents", applyFile)
		}

		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		results, err := c.Apply(cmd.Context(), docs)
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(results)
		}
		for _, r := range results {
			fmt.Printf("%s/%s %s\n", r.Kind, r.Name, r.Status)
			printVerbose("id %s", r.ID)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "YAML file of resource documents ('-' for stdin)")
	rootCmd.AddCommand(applyCmd)
}
