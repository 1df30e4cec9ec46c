package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/console"
)

var (
	listLimit int
	listAll   bool
)

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List resources of a kind",
	Long: `List resources of one kind, newest first. The DETAILS column picks
the most telling field per kind: model for presets, provider for
keys, server URL for connections.

Examples:
  voxdeck list preset
  voxdeck list connection
  voxdeck list integration --limit=20
  voxdeck list space --all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		docs, err := c.List(cmd.Context(), kind, console.ListOpts{Limit: listLimit, All: listAll})
		if err != nil {
			return err
		}

		switch formatOutput {
		case "json":
			return printJSON(docs)
		case "name":
			for _, doc := range docs {
				fmt.Println(doc.FullName())
			}
			return nil
		}

		if len(docs) == 0 {
			fmt.Printf("No %s resources.\n", kind)
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "KIND\tNAME\tDETAILS")
		for _, doc := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", doc.Kind, doc.Name(), summarizeDoc(doc))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("(%d items)\n", len(docs))
		return nil
	},
}

// summarizeDoc picks the field worth a glance in list output.
func summarizeDoc(doc console.Document) string {
	if v := doc.GetString("model"); v != "" {
		return "model=" + v
	}
	if v := doc.GetString("provider"); v != "" {
		return "provider=" + v
	}
	if v := doc.GetString("server_url"); v != "" {
		return "server_url=" + v
	}
	if v := doc.GetString("url"); v != "" {
		if tool := doc.GetString("tool_name"); tool != "" {
			return "url=" + v + " tool=" + tool
		}
		return "url=" + v
	}
	if v := doc.GetString("description"); v != "" {
		if len(v) > 40 {
			v = v[:40] + "..."
		}
		return v
	}
	return ""
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 10, "max rows (newest first)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "return every row, ignoring --limit")
	rootCmd.AddCommand(listCmd)
}
