package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <name>",
	Short: "Delete a resource by kind and name",
	Long: `Delete a single resource. Dependents go with it: deleting a preset
removes its tool selection and webhook integrations, deleting a
connection removes its discovered tools, deleting a space removes its
documents.

Examples:
  voxdeck delete preset support-bot
  voxdeck delete connection crm`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, name := args[0], args[1]
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Delete(cmd.Context(), kind, name); err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"kind": kind, "name": name, "status": "deleted"})
		}
		fmt.Printf("Deleted %s/%s\n", kind, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
