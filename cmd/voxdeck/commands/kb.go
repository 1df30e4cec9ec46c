package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/cli"
	"github.com/voxdeck/voxdeck/pkg/console"
	"github.com/voxdeck/voxdeck/pkg/knowledge"
)

var (
	kbSearchLimit int
	kbUploadForce bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge spaces, documents, and retrieval search",
	Long: `Manage retrieval corpora. Spaces are created with 'apply' (kind
space); documents are uploaded files the platform chunks and embeds
server-side.

Uploads need the context's uploads store configured:
  voxdeck ctx config set uploads file:///var/voxdeck/uploads

Examples:
  voxdeck kb spaces
  voxdeck kb docs faq
  voxdeck kb upload faq ./handbook.md
  voxdeck kb search faq "refund policy"
  voxdeck kb status faq`,
}

// spaceByName resolves a space by its display name.
func spaceByName(cmd *cobra.Command, c *console.Console, name string) (*knowledge.Space, error) {
	spaces, err := c.Knowledge().Spaces(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, s := range spaces {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("space %q not found", name)
}

var kbSpacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List knowledge spaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		spaces, err := c.Knowledge().Spaces(cmd.Context())
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(spaces)
		}
		if len(spaces) == 0 {
			fmt.Println("No spaces. Create one with: voxdeck apply -f space.yaml")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, s := range spaces {
			fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
		}
		w.Flush()
		return nil
	},
}

var kbDocsCmd = &cobra.Command{
	Use:   "docs <space>",
	Short: "List documents in a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		docs, err := c.Knowledge().Documents(cmd.Context(), space.ID)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(docs)
		}
		if len(docs) == 0 {
			fmt.Println("No documents.")
			return nil
		}
		w := newTabWriter()
		fmt.Fprintln(w, "NAME\tSTATUS\tSIZE\tCHUNKS")
		for _, d := range docs {
			status := d.Status
			if d.Status == knowledge.StatusFailed && d.Error != "" {
				status = fmt.Sprintf("failed (%s)", d.Error)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.Name, status, cli.FormatBytes(d.Bytes), d.Chunks)
		}
		w.Flush()
		fmt.Printf("(%d documents)\n", len(docs))
		return nil
	},
}

var kbUploadCmd = &cobra.Command{
	Use:   "upload <space> <file>",
	Short: "Upload a document into a space",
	Long: `Copy a local file into the uploads store and register it for
embedding. The document starts pending; watch 'kb status' for the
pipeline to pick it up. Re-uploading a file that is already staged
needs --force.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		doc, err := c.Knowledge().Upload(cmd.Context(), space.ID, args[1], kbUploadForce)
		if err != nil {
			return err
		}

		printVerbose("staged at %s", doc.Source)
		if formatOutput == "json" {
			return printJSON(doc)
		}
		fmt.Printf("Uploaded %s (%s, %s)\n", doc.Name, cli.FormatBytes(doc.Bytes), doc.Status)
		return nil
	},
}

var kbImportCmd = &cobra.Command{
	Use:   "import <space> <store-path>",
	Short: "Register a file already in the uploads store",
	Long: `Register a file that already lives in the uploads store, for
corpora synced into the store out of band (rsync, S3 replication).
The path is relative to the store root.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		doc, err := c.Knowledge().Import(cmd.Context(), space.ID, args[1])
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(doc)
		}
		fmt.Printf("Imported %s (%s, %s)\n", doc.Name, cli.FormatBytes(doc.Bytes), doc.Status)
		return nil
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <space> <query>",
	Short: "Semantic search over a space",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		hits, err := c.Knowledge().Search(cmd.Context(), space.ID, args[1], kbSearchLimit)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(hits)
		}
		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for i, h := range hits {
			fmt.Printf("%d. %s (%.3f)\n", i+1, h.Document, h.Score)
			fmt.Println(indentBlock(h.Snippet, "   "))
		}
		return nil
	},
}

var kbStatusCmd = &cobra.Command{
	Use:   "status <space>",
	Short: "Show the embedding pipeline state of a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		status, err := c.Knowledge().Status(cmd.Context(), space.ID)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(status)
		}
		fmt.Printf("%s: %d documents, %d embedded, %d pending, %d failed\n",
			space.Name, status.Total, status.Embedded, status.Pending, status.Failed)
		return nil
	},
}

var kbReindexCmd = &cobra.Command{
	Use:   "reindex <space>",
	Short: "Queue failed documents for re-embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		n, err := c.Knowledge().Reindex(cmd.Context(), space.ID)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(map[string]any{"space": space.Name, "queued": n})
		}
		fmt.Printf("Queued %d documents\n", n)
		return nil
	},
}

var kbRemoveCmd = &cobra.Command{
	Use:   "remove <space> <document>",
	Short: "Remove a document from a space",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		space, err := spaceByName(cmd, c, args[0])
		if err != nil {
			return err
		}
		docs, err := c.Knowledge().Documents(cmd.Context(), space.ID)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if d.Name == args[1] {
				if err := c.Knowledge().DeleteDocument(cmd.Context(), d.ID); err != nil {
					return err
				}
				fmt.Printf("Removed %s\n", d.Name)
				return nil
			}
		}
		return fmt.Errorf("document %q not found in space %q", args[1], args[0])
	},
}

func init() {
	kbSearchCmd.Flags().IntVar(&kbSearchLimit, "limit", 5, "max hits to return")
	kbUploadCmd.Flags().BoolVar(&kbUploadForce, "force", false, "replace an already-staged file")

	kbCmd.AddCommand(kbSpacesCmd)
	kbCmd.AddCommand(kbDocsCmd)
	kbCmd.AddCommand(kbUploadCmd)
	kbCmd.AddCommand(kbImportCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbStatusCmd)
	kbCmd.AddCommand(kbReindexCmd)
	kbCmd.AddCommand(kbRemoveCmd)

	rootCmd.AddCommand(kbCmd)
}
