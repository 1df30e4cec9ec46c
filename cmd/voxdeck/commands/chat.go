package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/chat"
	"github.com/voxdeck/voxdeck/pkg/cli"
	"github.com/voxdeck/voxdeck/pkg/widget"
)

var (
	chatPreset    string
	chatLimit     int
	chatVisitor   string
	chatSessionID string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat sessions, transcripts, and the playground",
	Long: `Read conversation history written by deployed agents and test a
preset in the text playground.

Playground turns call the preset's provider directly and persist
nothing; deployed sessions are created by the widget runtime and are
read-only here apart from ending them.

Examples:
  voxdeck chat sessions --preset support-bot
  voxdeck chat log 7c9e4a
  voxdeck chat send support-bot "What are your opening hours?"
  voxdeck chat send support-bot "And on holidays?" --session 7c9e4a`,
}

var chatSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		presetID := ""
		if chatPreset != "" {
			p, err := c.Presets().GetByName(cmd.Context(), chatPreset)
			if err != nil {
				return err
			}
			presetID = p.ID
		}

		sessions, err := c.Chats().Sessions(cmd.Context(), presetID, chatLimit)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(sessions)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "ID\tVISITOR\tSTATUS\tSTARTED\tDURATION")
		for _, s := range sessions {
			started := ""
			if !s.StartedAt.IsZero() {
				started = s.StartedAt.Format("2006-01-02 15:04")
			}
			duration := ""
			if !s.EndedAt.IsZero() && s.EndedAt.After(s.StartedAt) {
				duration = cli.FormatDuration(s.EndedAt.Sub(s.StartedAt))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, orDash(s.Visitor), s.Status, started, duration)
		}
		w.Flush()
		fmt.Printf("(%d sessions)\n", len(sessions))
		return nil
	},
}

var chatLogCmd = &cobra.Command{
	Use:   "log <session-id>",
	Short: "Print a session transcript",
	Long: `Print the full transcript of a session. Messages carrying a widget
payload render it as an indented outline under the text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		t, err := c.Chats().Transcript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(t)
		}
		fmt.Print(t.Render(widget.NewRenderer()))
		return nil
	},
}

var chatStartCmd = &cobra.Command{
	Use:   "start <preset>",
	Short: "Start a manual test session",
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
		sess, err := c.Chats().Start(cmd.Context(), p.ID, chatVisitor)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(sess)
		}
		fmt.Println(sess.ID)
		return nil
	},
}

var chatEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Mark a session ended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Chats().End(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Ended %s\n", args[0])
		return nil
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <preset> <prompt>",
	Short: "Run a playground turn against the preset's provider",
	Long: `Send one prompt through the preset's provider and stream the reply.
Nothing is persisted. With --session, the stored transcript seeds the
conversation history, so a deployed exchange can be continued in the
playground.`,
	Args: cobra.ExactArgs(2),
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
		if p.ProviderKeyID == "" {
			return fmt.Errorf("preset %q has no provider key (set provider_key and re-apply)", p.Name)
		}
		key, err := c.Presets().Key(cmd.Context(), p.ProviderKeyID)
		if err != nil {
			return err
		}

		var history []*chat.Message
		if chatSessionID != "" {
			history, err = c.Chats().Messages(cmd.Context(), chatSessionID)
			if err != nil {
				return err
			}
			printVerbose("seeded %d history messages from session %s", len(history), chatSessionID)
		}

		pg := chat.NewPlayground(key)
		if err := pg.Run(cmd.Context(), p, history, args[1], os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		return nil
	},
}

func init() {
	chatSessionsCmd.Flags().StringVar(&chatPreset, "preset", "", "filter by preset name")
	chatSessionsCmd.Flags().IntVar(&chatLimit, "limit", 10, "max sessions to return")
	chatStartCmd.Flags().StringVar(&chatVisitor, "visitor", "", "visitor label for the session")
	chatSendCmd.Flags().StringVar(&chatSessionID, "session", "", "seed history from this session")

	chatCmd.AddCommand(chatSessionsCmd)
	chatCmd.AddCommand(chatLogCmd)
	chatCmd.AddCommand(chatStartCmd)
	chatCmd.AddCommand(chatEndCmd)
	chatCmd.AddCommand(chatSendCmd)

	rootCmd.AddCommand(chatCmd)
}
