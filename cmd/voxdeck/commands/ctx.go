package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ctxCmd = &cobra.Command{
	Use:   "ctx",
	Short: "Manage platform contexts",
	Long: `Contexts hold the connection settings for one deployment: the
platform API URL, the publishable key, the embed host baked into
widget snippets, and the local cache and upload stores. Every other
command runs against the selected context, so switching context
switches the whole stack.

Typical setup:

  voxdeck ctx add staging
  voxdeck ctx use staging
  voxdeck ctx config set api https://api.staging.example.com
  voxdeck ctx config set anon_key pk_staging_123`,
}

var ctxAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := s.CtxAdd(name); err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"context": name, "status": "created"})
		}
		fmt.Printf("Added context %q.\n", name)
		return nil
	},
}

var ctxRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a context and its local stores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := s.CtxRemove(name); err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"context": name, "status": "removed"})
		}
		fmt.Printf("Removed context %q.\n", name)
		return nil
	},
}

var ctxUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Select the context later commands run against",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := s.CtxUse(name); err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"context": name, "status": "selected"})
		}
		fmt.Printf("Now using context %q.\n", name)
		return nil
	},
}

var ctxCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the selected context's name",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		name, err := s.CtxCurrent()
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"context": name})
		}
		fmt.Println(name)
		return nil
	},
}

var ctxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		infos, err := s.CtxList()
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(infos)
		}
		if len(infos) == 0 {
			fmt.Println("No contexts. Add one with 'voxdeck ctx add <name>'.")
			return nil
		}
		for _, info := range infos {
			if info.Current {
				fmt.Printf("%s (current)\n", info.Name)
			} else {
				fmt.Println(info.Name)
			}
		}
		return nil
	},
}

var ctxShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a context's configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		ctxName, cfg, err := s.CtxShow(name)
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"name": ctxName, "config": cfg})
		}
		w := newTabWriter()
		fmt.Fprintf(w, "context\t%s\n", ctxName)
		for _, row := range [][2]string{
			{"api", cfg.API},
			{"anon_key", cfg.AnonKey},
			{"embed_host", cfg.EmbedHost},
			{"cache", cfg.Cache},
			{"uploads", cfg.Uploads},
			{"timeout", cfg.Timeout},
		} {
			fmt.Fprintf(w, "%s\t%s\n", row[0], orDash(row[1]))
		}
		return w.Flush()
	},
}

var ctxConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write context config keys",
}

var ctxConfigSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config key on the selected context",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := s.CtxConfigSet(key, value); err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(map[string]any{"key": key, "value": value, "status": "set"})
		}
		fmt.Printf("Set %s to %q.\n", key, value)
		return nil
	},
}

var ctxConfigListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the supported config keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		keys := s.CtxConfigList()
		if formatOutput == "json" {
			return printJSON(keys)
		}
		w := newTabWriter()
		fmt.Fprintln(w, "KEY\tDESCRIPTION")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k.Key, k.Description)
		}
		return w.Flush()
	},
}

func init() {
	ctxConfigCmd.AddCommand(ctxConfigSetCmd, ctxConfigListCmd)
	ctxCmd.AddCommand(ctxAddCmd, ctxRemoveCmd, ctxUseCmd, ctxCurrentCmd,
		ctxListCmd, ctxShowCmd, ctxConfigCmd)
	rootCmd.AddCommand(ctxCmd)
}
