package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/cli"
	"github.com/voxdeck/voxdeck/pkg/console"
	"github.com/voxdeck/voxdeck/pkg/toolset"
)

var (
	toolsPreset string
	toolsSource string
	paramsFile  string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage a preset's tool selection",
	Long: `Edit which tools a preset's agent may call. Edits are drafts held in
the local cache until 'tools save' pushes them to the backend; a
reload keeps unsaved edits only while the server selection is
unchanged underneath them.

Examples:
  voxdeck tools list --preset support-bot
  voxdeck tools enable crmSync_ab12 --preset support-bot
  voxdeck tools disable search --preset support-bot --source mcp
  voxdeck tools save --preset support-bot`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if toolsPreset == "" {
			return fmt.Errorf("flag --preset is required")
		}
		return nil
	},
}

// loadSelection resolves the preset by name and loads its selection.
func loadSelection(cmd *cobra.Command) (*console.Console, *toolset.Selection, error) {
	c, err := openConsole(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	p, err := c.Presets().GetByName(cmd.Context(), toolsPreset)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	sel, err := c.Tools().Load(cmd.Context(), p.ID)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return c, sel, nil
}

// resolveSource finds which source a tool name belongs to, honoring an
// explicit --source and refusing names that exist in both catalogs.
func resolveSource(sel *toolset.Selection, name string) (toolset.Source, error) {
	if toolsSource != "" {
		src := toolset.Source(toolsSource)
		if !src.IsValid() {
			return "", fmt.Errorf("invalid source %q (must be %q or %q)", toolsSource, toolset.SourceMCP, toolset.SourceWebhook)
		}
		if _, ok := sel.Catalog().Lookup(src, name); !ok {
			return "", fmt.Errorf("tool %q not available from source %s", name, src)
		}
		return src, nil
	}

	var found []toolset.Source
	for _, src := range toolset.Sources() {
		if _, ok := sel.Catalog().Lookup(src, name); ok {
			found = append(found, src)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("tool %q not available (see 'tools list')", name)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("tool %q exists in both sources; disambiguate with --source", name)
	}
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available tools and their selection state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if formatOutput == "json" {
			type toolState struct {
				toolset.Tool
				Selected bool `json:"selected"`
			}
			out := struct {
				Tools []toolState `json:"tools"`
				Dirty bool        `json:"dirty"`
			}{Dirty: sel.Dirty()}
			for _, src := range toolset.Sources() {
				for _, name := range sel.Catalog().Names(src) {
					tool, _ := sel.Catalog().Lookup(src, name)
					out.Tools = append(out.Tools, toolState{Tool: tool, Selected: sel.IsSelected(src, name)})
				}
			}
			return printJSON(out)
		}

		if sel.Catalog().Len() == 0 {
			fmt.Println("No tools available.")
			fmt.Println("Add an MCP connection or a webhook integration first.")
			return nil
		}

		w := newTabWriter()
		fmt.Fprintln(w, "SOURCE\tTOOL\tSELECTED\tDESCRIPTION")
		for _, src := range toolset.Sources() {
			for _, name := range sel.Catalog().Names(src) {
				tool, _ := sel.Catalog().Lookup(src, name)
				mark := ""
				if sel.IsSelected(src, name) {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src, name, mark, tool.Description)
			}
		}
		w.Flush()
		fmt.Printf("(%d of %d selected)\n", sel.Count(), sel.Catalog().Len())
		if sel.Dirty() {
			fmt.Println("Unsaved changes. Push them with: voxdeck tools save --preset " + toolsPreset)
		}
		return nil
	},
}

var toolsEnableCmd = &cobra.Command{
	Use:   "enable <tool>",
	Short: "Select a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		src, err := resolveSource(sel, args[0])
		if err != nil {
			return err
		}
		if sel.IsSelected(src, args[0]) {
			fmt.Printf("%s already selected\n", args[0])
			return nil
		}
		if _, err := sel.Toggle(cmd.Context(), src, args[0]); err != nil {
			return err
		}
		fmt.Printf("Selected %s (unsaved)\n", args[0])
		return nil
	},
}

var toolsDisableCmd = &cobra.Command{
	Use:   "disable <tool>",
	Short: "Deselect a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		src, err := resolveSource(sel, args[0])
		if err != nil {
			return err
		}
		if !sel.IsSelected(src, args[0]) {
			fmt.Printf("%s already deselected\n", args[0])
			return nil
		}
		if _, err := sel.Toggle(cmd.Context(), src, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deselected %s (unsaved)\n", args[0])
		return nil
	},
}

var toolsSelectAllCmd = &cobra.Command{
	Use:   "select-all",
	Short: "Select every available tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		srcs, err := sourcesForFlag()
		if err != nil {
			return err
		}
		for _, src := range srcs {
			if err := sel.SelectAll(cmd.Context(), src); err != nil {
				return err
			}
		}
		fmt.Printf("Selected %d tools (unsaved)\n", sel.Count())
		return nil
	},
}

var toolsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deselect every tool",
	Long: `Deselect every tool. Saving an empty selection writes the explicit
no-tools marker, so the agent runs with no tools rather than falling
back to everything available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		srcs, err := sourcesForFlag()
		if err != nil {
			return err
		}
		for _, src := range srcs {
			if err := sel.Clear(cmd.Context(), src); err != nil {
				return err
			}
		}
		fmt.Printf("Cleared (%d selected, unsaved)\n", sel.Count())
		return nil
	},
}

var toolsParamsCmd = &cobra.Command{
	Use:   "params <tool>",
	Short: "Show or set a webhook tool's payload parameters",
	Long: `Without --file, show the tool's effective payload parameters. With
--file, replace them from a YAML or JSON list of
{key, type, description, required, example} entries. Parameter edits
are drafts like selection edits and land on 'tools save'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		tool, ok := sel.Catalog().Lookup(toolset.SourceWebhook, args[0])
		if !ok {
			return fmt.Errorf("webhook tool %q not available (MCP tools declare parameters on their server)", args[0])
		}

		if paramsFile != "" {
			var params []toolset.Param
			if err := cli.LoadRequest(paramsFile, &params); err != nil {
				return err
			}
			for i, p := range params {
				if p.Key == "" {
					return fmt.Errorf("params[%d]: missing key", i)
				}
			}
			if err := sel.SetParams(cmd.Context(), tool.IntegrationID, params); err != nil {
				return err
			}
			fmt.Printf("Set %d parameters on %s (unsaved)\n", len(params), args[0])
			return nil
		}

		params := sel.Params(tool.IntegrationID)
		if formatOutput == "json" {
			return printJSON(params)
		}
		if len(params) == 0 {
			fmt.Println("No parameters declared.")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "KEY\tTYPE\tREQUIRED\tDESCRIPTION")
		for _, p := range params {
			req := ""
			if p.Required {
				req = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Key, p.Type, req, p.Description)
		}
		w.Flush()
		return nil
	},
}

var toolsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Push the draft selection to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, sel, err := loadSelection(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		summary, err := c.Tools().Save(cmd.Context(), sel)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(summary)
		}
		fmt.Printf("Saved %d tools (replaced %d rows with %d)\n", summary.Tools, summary.Deleted, summary.Inserted)
		return nil
	},
}

// sourcesForFlag returns the sources a bulk edit touches.
func sourcesForFlag() ([]toolset.Source, error) {
	if toolsSource == "" {
		return toolset.Sources(), nil
	}
	src := toolset.Source(toolsSource)
	if !src.IsValid() {
		return nil, fmt.Errorf("invalid source %q (must be %q or %q)", toolsSource, toolset.SourceMCP, toolset.SourceWebhook)
	}
	return []toolset.Source{src}, nil
}

func init() {
	toolsCmd.PersistentFlags().StringVar(&toolsPreset, "preset", "", "preset name (required)")
	toolsCmd.PersistentFlags().StringVar(&toolsSource, "source", "", "restrict to one source: mcp or webhook")
	toolsParamsCmd.Flags().StringVar(&paramsFile, "file", "", "YAML or JSON parameter list")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsEnableCmd)
	toolsCmd.AddCommand(toolsDisableCmd)
	toolsCmd.AddCommand(toolsSelectAllCmd)
	toolsCmd.AddCommand(toolsClearCmd)
	toolsCmd.AddCommand(toolsParamsCmd)
	toolsCmd.AddCommand(toolsSaveCmd)

	rootCmd.AddCommand(toolsCmd)
}
