package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/preset"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Inspect presets",
	Long: `Inspect a preset beyond the raw row: resolved provider key, realtime
model, and the exact session config a live widget would open with.

Presets are created and edited with 'apply'; 'list preset' lists them.

Examples:
  voxdeck preset show support-bot
  voxdeck preset realtime support-bot`,
}

var presetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a preset with resolved references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		p, err := c.Presets().GetByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		keyName := ""
		if p.ProviderKeyID != "" {
			if key, err := c.Presets().Key(cmd.Context(), p.ProviderKeyID); err == nil {
				keyName = fmt.Sprintf("%s (%s)", key.Name, key.Provider)
			}
		}

		if formatOutput == "json" {
			return printJSON(p)
		}
		fmt.Printf("Preset: %s\n", p.Name)
		fmt.Printf("  model:          %s\n", orDash(p.Model))
		fmt.Printf("  realtime model: %s\n", p.RealtimeModel())
		fmt.Printf("  voice:          %s\n", orDash(p.Voice))
		if p.Temperature != nil {
			fmt.Printf("  temperature:    %g\n", *p.Temperature)
		} else {
			fmt.Printf("  temperature:    -\n")
		}
		fmt.Printf("  language:       %s\n", orDash(p.Language))
		fmt.Printf("  provider key:   %s\n", orDash(keyName))
		fmt.Printf("  public id:      %s\n", orDash(p.PublicID))
		if p.Greeting != "" {
			fmt.Printf("  greeting:       %s\n", p.Greeting)
		}
		if p.Instructions != "" {
			fmt.Printf("  instructions:\n%s\n", indentBlock(p.Instructions, "    "))
		}
		return nil
	},
}

var presetRealtimeCmd = &cobra.Command{
	Use:   "realtime <name>",
	Short: "Show the realtime session config a widget would open with",
	Long: `Derive the live session configuration from the preset and its current
tool selection. This is the session.update payload the embedded
widget sends after connecting.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		p, err := c.Presets().GetByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		sel, err := c.Tools().Load(cmd.Context(), p.ID)
		if err != nil {
			return err
		}

		printVerbose("preset %s: %d tools selected", p.Name, sel.Count())
		return printJSON(preset.RealtimeConfig(p, sel))
	},
}

func init() {
	presetCmd.AddCommand(presetShowCmd)
	presetCmd.AddCommand(presetRealtimeCmd)

	rootCmd.AddCommand(presetCmd)
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
