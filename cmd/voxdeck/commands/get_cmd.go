package commands

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <kind> <name>",
	Short: "Get a resource by kind and name",
	Long: `Fetch one resource and print its fields as YAML. Secret values are
masked on the way out; the stored value is untouched.

Examples:
  voxdeck get preset support-bot
  voxdeck get providerkey openai-prod
  voxdeck get connection crm --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, name := args[0], args[1]
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		doc, err := c.Get(cmd.Context(), kind, name)
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(doc)
		}
		out, err := yaml.Marshal(doc.Fields)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
