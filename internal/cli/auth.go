package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		email, password := loginEmail, loginPassword
		if email == "" {
			email = prompt("Email: ")
		}
		if password == "" {
			password = prompt("Password: ")
		}

		if err := app.client.Login(context.Background(), email, password); err != nil {
			fmt.Println("❌ Login failed:", err)
			return
		}
		if app.guard.Role() == session.RoleAdmin {
			fmt.Println("✅ Logged in as admin.")
			return
		}
		fmt.Println("✅ Logged in.")
	},
}

var registerUsername string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and store the session token",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		username := registerUsername
		if username == "" {
			username = prompt("Username: ")
		}
		email, password := loginEmail, loginPassword
		if email == "" {
			email = prompt("Email: ")
		}
		if password == "" {
			password = prompt("Password: ")
		}

		if err := app.client.Register(context.Background(), username, email, password); err != nil {
			fmt.Println("❌ Registration failed:", err)
			return
		}
		fmt.Println("✅ Account created, you are logged in.")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Destroy the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		if err := app.guard.Logout(); err != nil {
			fmt.Println("❌ Logout failed:", err)
			return
		}
		fmt.Println("✅ Logged out.")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Run: func(cmd *cobra.Command, args []string) {
		app := newApp()
		claims, ok := app.guard.Claims()
		if !ok {
			fmt.Println("Not logged in.")
			return
		}
		expires := "never"
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("Subject: %s\nRole:    %s\nExpires: %s\n", claims.Subject, claims.Role, expires)
	},
}

func prompt(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password")
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Display name")
	registerCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
