package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show per-topic and overall progress",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		rows, err := app.store.EachTopicProgress(ctx)
		if err != nil {
			fmt.Println("❌ Failed to load progress:", err)
			return
		}
		total, err := app.store.OverallProgress(ctx)
		if err != nil {
			fmt.Println("❌ Failed to load overall progress:", err)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Topic\tSolved\tProgress")
		fmt.Fprintln(w, "-----\t------\t--------")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%d/%d\t%s %d%%\n",
				row.TopicName, row.Completed, row.TotalQuestions, bar(row.PercentCompleted), row.PercentCompleted)
		}
		w.Flush()
		fmt.Printf("\nOverall: %s %d%%\n", bar(total), total)
	},
}

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List bookmarked questions across topics",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		marks, err := app.store.FetchBookmarks(ctx)
		if err != nil {
			fmt.Println("❌ Failed to load bookmarks:", err)
			return
		}
		if len(marks) == 0 {
			fmt.Println("No questions bookmarked yet.")
			return
		}
		for i, q := range marks {
			fmt.Printf("%s %2d. [%s] %s\n", checkmark(q.Done), i+1, q.TopicName, q.Problem)
			if q.Notes != "" {
				fmt.Printf("        📝 %s\n", q.Notes)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(progressCmd, bookmarksCmd)
}
