package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List all topics with progress",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		app.store.FetchAll(ctx)
		app.flush(ctx)

		if _, err := app.store.LoadState(); err != nil {
			fmt.Println("❌ Failed to load topics, try again:", err)
			return
		}
		topics := app.store.Topics()
		if len(topics) == 0 {
			fmt.Println("No topics available yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Topic\tSolved\tProgress")
		fmt.Fprintln(w, "-----\t------\t--------")
		for _, t := range topics {
			solved := t.Completed()
			percent := t.PercentCompleted()
			if row, ok := app.store.ServerProgress(t.Name); ok {
				solved = row.Completed
				percent = row.PercentCompleted
			}
			fmt.Fprintf(w, "%s\t%d/%d\t%s %d%%\n", t.Name, solved, len(t.Questions), bar(percent), percent)
		}
		w.Flush()
	},
}

var topicCmd = &cobra.Command{
	Use:   "topic [name]",
	Short: "Show a topic's questions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		app.store.FetchTopic(ctx, args[0])
		app.flush(ctx)

		topic, ok := app.store.Topic(args[0])
		if !ok {
			fmt.Printf("❌ Topic %q not found.\n", args[0])
			return
		}
		fmt.Printf("%s — %d questions, %d%% done\n\n", topic.Name, len(topic.Questions), topic.PercentCompleted())
		for i, q := range topic.Questions {
			marker := "🔖"
			if !q.Bookmarked {
				marker = "  "
			}
			fmt.Printf("%s %s %2d. %s\n", checkmark(q.Done), marker, i+1, q.Problem)
			for _, link := range q.Links {
				fmt.Printf("        %s\n", link)
			}
			if q.Notes != "" {
				fmt.Printf("        📝 %s\n", q.Notes)
			}
		}
	},
}

func bar(percent int) string {
	filled := percent / 10
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", 10-filled) + "]"
}

func init() {
	rootCmd.AddCommand(topicsCmd, topicCmd)
}
