package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/embedcode"
)

var (
	embedOrigins    []string
	embedPrimary    string
	embedBackground string
	embedFont       string
	embedRadius     int
	embedWidth      int
	embedHeight     int
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed snippets for a published preset",
	Long: `Print the copy-paste snippet that puts an agent on a host page,
either a hosted iframe or a script-tag loader. The snippet carries
the preset's public id and branding; no credential. The host base URL
comes from the context (embed_host, falling back to api).

Examples:
  voxdeck embed iframe support-bot
  voxdeck embed script support-bot --primary '#4f46e5' --origin https://example.com`,
}

// embedOptions assembles the snippet options for a preset name.
func embedOptions(cmd *cobra.Command, name string) (embedcode.Options, error) {
	c, err := openConsole(cmd.Context())
	if err != nil {
		return embedcode.Options{}, err
	}
	defer c.Close()

	p, err := c.Presets().GetByName(cmd.Context(), name)
	if err != nil {
		return embedcode.Options{}, err
	}
	if p.PublicID == "" {
		return embedcode.Options{}, fmt.Errorf("preset %q has no public id; re-apply it to mint one", name)
	}
	host, err := c.EmbedHost()
	if err != nil {
		return embedcode.Options{}, err
	}

	return embedcode.Options{
		PublicID: p.PublicID,
		Host:     host,
		Origins:  embedOrigins,
		Brand: embedcode.Brand{
			PrimaryColor:    embedPrimary,
			BackgroundColor: embedBackground,
			FontFamily:      embedFont,
			CornerRadius:    embedRadius,
			Width:           embedWidth,
			Height:          embedHeight,
		},
	}, nil
}

var embedIframeCmd = &cobra.Command{
	Use:   "iframe <preset>",
	Short: "Print the hosted iframe snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := embedOptions(cmd, args[0])
		if err != nil {
			return err
		}
		html, err := opts.IframeHTML()
		if err != nil {
			return err
		}
		fmt.Println(html)
		return nil
	},
}

var embedScriptCmd = &cobra.Command{
	Use:   "script <preset>",
	Short: "Print the script-tag loader snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := embedOptions(cmd, args[0])
		if err != nil {
			return err
		}
		snippet, err := opts.LoaderSnippet()
		if err != nil {
			return err
		}
		fmt.Println(snippet)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{embedIframeCmd, embedScriptCmd} {
		c.Flags().StringArrayVar(&embedOrigins, "origin", nil, "allowed page origin (repeatable)")
		c.Flags().StringVar(&embedPrimary, "primary", "", "primary color (#rrggbb)")
		c.Flags().StringVar(&embedBackground, "background", "", "background color (#rrggbb)")
		c.Flags().StringVar(&embedFont, "font", "", "font family")
		c.Flags().IntVar(&embedRadius, "radius", 0, "corner radius in px")
		c.Flags().IntVar(&embedWidth, "width", 0, "iframe width in px")
		c.Flags().IntVar(&embedHeight, "height", 0, "iframe height in px")
	}

	embedCmd.AddCommand(embedIframeCmd)
	embedCmd.AddCommand(embedScriptCmd)

	rootCmd.AddCommand(embedCmd)
}
