package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin dashboard views",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every user's overall progress",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess(session.RoleAdmin) {
			return
		}

		users, err := app.client.AllUsersProgress(context.Background())
		if err != nil {
			fmt.Println("❌ Failed to load users:", err)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "User\tEmail\tProgress")
		fmt.Fprintln(w, "----\t-----\t--------")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%d%%\n", u.Username, u.Email, u.TotalPercent)
		}
		w.Flush()
	},
}

var adminUserCmd = &cobra.Command{
	Use:   "user [id]",
	Short: "Show one user's per-topic progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if !app.requireAccess(session.RoleAdmin) {
			return
		}

		rows, err := app.client.UserDetail(context.Background(), args[0])
		if err != nil {
			fmt.Println("❌ Failed to load user:", err)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Topic\tSolved\tProgress")
		fmt.Fprintln(w, "-----\t------\t--------")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%d/%d\t%d%%\n", row.TopicName, row.Completed, row.TotalQuestions, row.PercentCompleted)
		}
		w.Flush()
	},
}

func init() {
	adminCmd.AddCommand(adminUsersCmd, adminUserCmd)
	rootCmd.AddCommand(adminCmd)
}
