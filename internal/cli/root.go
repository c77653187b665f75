// Package cli is the trackctl command tree: the consumer-facing views
// over the topic store and session guard.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/api"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/config"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/model"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
	"github.com/Rakshitha-Poola/Js-Tracker/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "trackctl",
	Short: "Track your DSA practice progress from the terminal",
	Long: `trackctl is the terminal client for Js-Tracker. It mirrors your
topics and questions locally, applies your changes instantly and syncs
them to the server in the background.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// app bundles the wired client core for one command invocation.
type app struct {
	cfg    config.Config
	tokens session.Store
	guard  *session.Guard
	client *api.Client
	store  *store.Store
}

func newApp() *app {
	cfg := config.Load()
	logger := log.New(os.Stderr, "", 0)
	tokens := session.NewFileStore(cfg.TokenPath)
	client := api.New(cfg, tokens, logger)
	return &app{
		cfg:    cfg,
		tokens: tokens,
		guard:  session.NewGuard(tokens),
		client: client,
		store: store.New(client, store.Options{
			FetchAllInterval:   cfg.FetchAllInterval,
			FetchTopicInterval: cfg.FetchTopicInterval,
			NotesDebounce:      cfg.NotesDebounce,
			Logger:             logger,
			OnError: func(op string, err error) {
				fmt.Fprintf(os.Stderr, "❌ %s: %v\n", op, err)
			},
		}),
	}
}

// requireAccess runs the route gates before a protected command. It
// returns false after printing the redirect the web app would perform.
func (a *app) requireAccess(role string) bool {
	switch a.guard.Authorize(role) {
	case session.Allow:
		return true
	case session.RedirectHome:
		fmt.Println("❌ This command needs admin access.")
		return false
	default:
		fmt.Println("❌ Not logged in. Run `trackctl login` first.")
		return false
	}
}

// flush drains debounced and in-flight writes before the process exits.
func (a *app) flush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, a.cfg.HTTPTimeout+time.Second)
	defer cancel()
	if err := a.store.Flush(flushCtx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ sync incomplete: %v\n", err)
	}
}

// resolveQuestion loads a topic and finds a question by 1-based position
// or by id.
func (a *app) resolveQuestion(ctx context.Context, topicName, ref string) (*model.Topic, *model.Question, bool) {
	a.store.FetchTopic(ctx, topicName)
	a.flush(ctx)

	topic, ok := a.store.Topic(topicName)
	if !ok {
		fmt.Printf("❌ Topic %q not found.\n", topicName)
		return nil, nil, false
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 1 || idx > len(topic.Questions) {
			fmt.Printf("❌ Question %d out of range (topic has %d).\n", idx, len(topic.Questions))
			return nil, nil, false
		}
		return topic, &topic.Questions[idx-1], true
	}
	if q := topic.Question(ref); q != nil {
		return topic, q, true
	}
	fmt.Printf("❌ Question %q not found in %q.\n", ref, topicName)
	return nil, nil, false
}

func checkmark(done bool) string {
	if done {
		return "✅"
	}
	return "  "
}
