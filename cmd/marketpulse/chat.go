package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/seenimoa/marketpulse/internal/assistant"
	"github.com/seenimoa/marketpulse/pkg/models"
)

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat with the trading assistant",
	Long: `Start an interactive chat session. The transcript and the watchlist and
portfolio the assistant edits are stored under the given user.

Commands: /reset clears the conversation, /quit exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := commandContext(0)
		defer stop()

		book, err := a.books.For(ctx, user)
		if err != nil {
			return err
		}
		sess := assistant.NewSession(a.assistant.WithCapabilities(book), a.kv, user, "cli")
		if err := sess.Load(ctx); err != nil {
			return err
		}
		return chatLoop(ctx, sess)
	},
}

func init() {
	chatCmd.Flags().String("user", "local", "user id for the transcript and portfolio")
}

var (
	youPrompt = color.New(color.FgCyan, color.Bold).SprintFunc()
	botLabel  = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

func chatLoop(ctx context.Context, sess *assistant.Session) error {
	for _, m := range sess.Messages() {
		printMessage(m)
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(youPrompt("you> "))
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := sess.Reset(ctx); err != nil {
				return err
			}
			printMessage(sess.Messages()[0])
			continue
		}

		reply, err := sess.Send(ctx, line)
		if err != nil {
			fmt.Println(dim("(transcript not saved: " + err.Error() + ")"))
		}
		printMessage(reply)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printMessage(m models.Message) {
	if m.Role == models.RoleUser {
		fmt.Printf("%s %s\n", youPrompt("you>"), m.Content)
		return
	}
	fmt.Printf("%s\n%s\n\n", botLabel("assistant>"), renderMarkdown(m.Content))
}

// renderMarkdown turns **bold** spans into terminal bold.
func renderMarkdown(s string) string {
	parts := strings.Split(s, "**")
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 && i < len(parts)-1 {
			b.WriteString(bold(p))
			continue
		}
		if i%2 == 1 {
			b.WriteString("**")
		}
		b.WriteString(p)
	}
	return b.String()
}
