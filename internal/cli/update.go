package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/api"
)

var undoFlag bool

var doneCmd = &cobra.Command{
	Use:   "done [topic] [question]",
	Short: "Mark a question done (or undo with --undo)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		topic, q, ok := app.resolveQuestion(ctx, args[0], args[1])
		if !ok {
			return
		}
		app.store.ToggleField(ctx, topic.ID, q.ID, api.FieldDone, !undoFlag)
		app.flush(ctx)

		if updated, ok := app.store.Topic(topic.Name); ok {
			fmt.Printf("✅ %s — now %d%% done\n", q.Problem, updated.PercentCompleted())
		}
	},
}

var removeFlag bool

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark [topic] [question]",
	Short: "Bookmark a question (or remove with --remove)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		topic, q, ok := app.resolveQuestion(ctx, args[0], args[1])
		if !ok {
			return
		}
		app.store.ToggleField(ctx, topic.ID, q.ID, api.FieldBookmarked, !removeFlag)
		app.flush(ctx)

		if removeFlag {
			fmt.Printf("✅ Removed bookmark from %q\n", q.Problem)
		} else {
			fmt.Printf("🔖 Bookmarked %q\n", q.Problem)
		}
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes [topic] [question] [text...]",
	Short: "Set the notes on a question",
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess("") {
			return
		}
		ctx := context.Background()

		topic, q, ok := app.resolveQuestion(ctx, args[0], args[1])
		if !ok {
			return
		}
		text := strings.Join(args[2:], " ")
		app.store.SetNotes(ctx, topic.ID, q.ID, text)
		app.flush(ctx)

		fmt.Printf("📝 Notes saved on %q\n", q.Problem)
	},
}

func init() {
	doneCmd.Flags().BoolVar(&undoFlag, "undo", false, "Mark the question as not done")
	bookmarkCmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the bookmark")

	rootCmd.AddCommand(doneCmd, bookmarkCmd, notesCmd)
}
