package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxdeck/voxdeck/pkg/cli"
	"github.com/voxdeck/voxdeck/pkg/console"
	"github.com/voxdeck/voxdeck/pkg/toolset"
	"github.com/voxdeck/voxdeck/pkg/usage"
)

var (
	usagePreset string
	usageDays   int
	usageLimit  int
	usageWatch  bool
	usageJQ     string
)

const usageRefreshInterval = 5 * time.Second

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Usage rollups per preset",
	Long: `Aggregate the platform's metering trail: events, sessions, tokens,
audio time, and cost, overall and broken down by kind, preset, and
day.

With --watch the rollup refreshes every few seconds in a dashboard
with a live event feed. --format and --jq are ignored in watch mode.

Examples:
  voxdeck usage
  voxdeck usage --days 30
  voxdeck usage --preset support-bot --days 7
  voxdeck usage --jq '.Totals.Cost'
  voxdeck usage --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openConsole(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		presetID := ""
		if usagePreset != "" {
			p, err := c.Presets().GetByName(cmd.Context(), usagePreset)
			if err != nil {
				return err
			}
			presetID = p.ID
		}

		if usageWatch {
			return runUsageWatch(cmd.Context(), c, presetID)
		}

		events, err := c.Usage().List(cmd.Context(), presetID, usageLimit)
		if err != nil {
			return err
		}
		summary := usage.Summarize(events, usage.LastDays(usageDays))

		if usageJQ != "" {
			return printJQ(summary, usageJQ)
		}
		if formatOutput == "json" {
			return printJSON(summary)
		}

		names := map[string]string{}
		if presetID == "" && len(summary.ByPreset) > 0 {
			names = presetNameIndex(cmd.Context(), c)
		}

		t := summary.Totals
		fmt.Printf("Last %d days: %d events, %d sessions, %s in / %s out, %.1fs audio, $%.2f\n",
			usageDays, t.Events, t.Sessions,
			cli.FormatTokens(t.InputTokens), cli.FormatTokens(t.OutputTokens),
			t.AudioSeconds, t.Cost)

		if len(summary.ByKind) > 0 {
			fmt.Println()
			w := newTabWriter()
			fmt.Fprintln(w, "KIND\tEVENTS\tTOKENS IN\tTOKENS OUT\tAUDIO\tCOST")
			for _, kind := range sortedKeys(summary.ByKind) {
				kt := summary.ByKind[kind]
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.1fs\t$%.2f\n",
					kind, kt.Events, cli.FormatTokens(kt.InputTokens), cli.FormatTokens(kt.OutputTokens),
					kt.AudioSeconds, kt.Cost)
			}
			w.Flush()
		}

		if presetID == "" && len(summary.ByPreset) > 1 {
			fmt.Println()
			w := newTabWriter()
			fmt.Fprintln(w, "PRESET\tEVENTS\tSESSIONS\tCOST")
			for _, id := range sortedKeys(summary.ByPreset) {
				pt := summary.ByPreset[id]
				label := names[id]
				if label == "" {
					label = id
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t$%.2f\n", label, pt.Events, pt.Sessions, pt.Cost)
			}
			w.Flush()
		}

		if len(summary.ByDay) > 0 {
			fmt.Println()
			w := newTabWriter()
			fmt.Fprintln(w, "DAY\tEVENTS\tSESSIONS\tCOST")
			for _, d := range summary.ByDay {
				fmt.Fprintf(w, "%s\t%d\t%d\t$%.2f\n",
					d.Day.Format("2006-01-02"), d.Totals.Events, d.Totals.Sessions, d.Totals.Cost)
			}
			w.Flush()
		}
		return nil
	},
}

// printJQ filters v through a jq expression and prints the first
// result. The expression sees the same document as --format json.
func printJQ(v any, expr string) error {
	e, err := toolset.ParseJQ(expr)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	out, err := e.Run(doc)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// Preset breakdowns read better by name than by row id.
func presetNameIndex(ctx context.Context, c *console.Console) map[string]string {
	names := map[string]string{}
	presets, err := c.Presets().List(ctx)
	if err != nil {
		return names
	}
	for _, p := range presets {
		names[p.ID] = p.Name
	}
	return names
}

func runUsageWatch(ctx context.Context, c *console.Console, presetID string) error {
	const (
		frameWidth  = 96
		frameHeight = 34
	)

	styles := cli.NewStyles(cli.DefaultTheme)
	feed := cli.NewFeed(64)
	names := presetNameIndex(ctx, c)

	// Stray log lines would tear the redrawn frame; land them in the
	// activity pane until the dashboard exits.
	prevLog := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(feed, nil)))
	defer slog.SetDefault(prevLog)

	var (
		totalLines  []string
		presetLines []string
		status      = "connecting"
		lastSeen    time.Time
	)

	presetLabel := func(id string) string {
		if name := names[id]; name != "" {
			return name
		}
		return id
	}

	refresh := func() {
		events, err := c.Usage().List(ctx, presetID, usageLimit)
		if err != nil {
			status = "error"
			feed.Add(fmt.Sprintf("%s fetch failed: %v", time.Now().Format("15:04:05"), err))
			return
		}
		summary := usage.Summarize(events, usage.LastDays(usageDays))
		t := summary.Totals

		totalLines = []string{
			fmt.Sprintf("%d events, %d sessions over the last %d days", t.Events, t.Sessions, usageDays),
			fmt.Sprintf("tokens: %s in / %s out    audio: %.1fs    cost: $%.2f",
				cli.FormatTokens(t.InputTokens), cli.FormatTokens(t.OutputTokens), t.AudioSeconds, t.Cost),
		}
		for _, kind := range sortedKeys(summary.ByKind) {
			kt := summary.ByKind[kind]
			totalLines = append(totalLines,
				fmt.Sprintf("  %-10s %5d events  $%.2f", kind, kt.Events, kt.Cost))
		}

		presetLines = presetLines[:0]
		for _, id := range sortedKeys(summary.ByPreset) {
			pt := summary.ByPreset[id]
			presetLines = append(presetLines,
				fmt.Sprintf("%-28s %5d events %4d sessions  $%.2f",
					presetLabel(id), pt.Events, pt.Sessions, pt.Cost))
		}

		// List is newest first; feed the ring oldest first so
		// new activity lands at the bottom.
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			if !e.At.After(lastSeen) {
				continue
			}
			feed.Add(fmt.Sprintf("%s %-9s %-20s %s in / %s out  $%.3f",
				e.At.Format("15:04:05"), e.Kind, presetLabel(e.PresetID),
				cli.FormatTokens(e.InputTokens), cli.FormatTokens(e.OutputTokens), e.Cost))
			lastSeen = e.At
		}
		status = "live " + time.Now().Format("15:04:05")
	}

	render := func() {
		frame := cli.Frame{
			Styles: styles,
			Title:  "VOXDECK // USAGE",
			Status: status,
			Sections: []cli.Section{
				{Label: "Totals", Content: func() []string { return totalLines }},
				{Label: "Presets", Content: func() []string { return presetLines }},
				{Label: "Activity", Content: feed.Lines},
			},
			Help: fmt.Sprintf("Ctrl+C=quit  |  window: last %d days  |  refresh: %s", usageDays, usageRefreshInterval),
		}
		fmt.Print("\033[H\033[2J")
		fmt.Println(frame.Render(frameWidth, frameHeight))
	}

	refresh()
	render()

	ticker := time.NewTicker(usageRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh()
			render()
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	usageCmd.Flags().StringVar(&usagePreset, "preset", "", "narrow to one preset by name")
	usageCmd.Flags().IntVar(&usageDays, "days", 7, "window size in days")
	usageCmd.Flags().IntVar(&usageLimit, "limit", 0, "max events to fetch (0 for all)")
	usageCmd.Flags().BoolVar(&usageWatch, "watch", false, "refresh continuously in a dashboard")
	usageCmd.Flags().StringVar(&usageJQ, "jq", "", "filter the summary with a jq expression")

	rootCmd.AddCommand(usageCmd)
}
