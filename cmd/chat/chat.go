// Package chat runs a console conversation with the bot.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"fjacquet/finchat/cmd/root"
	"fjacquet/finchat/internal/chatbot"

	"github.com/spf13/cobra"
)

const (
	quitCommand   = "/sair"
	cancelCommand = "/cancelar"
)

var (
	userID         string
	conversationID string
)

// Cmd represents the chat command
var Cmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the console",
	Long: `Talk to the bot from the console. Each line is one message.
Type /cancelar to drop the pending flow and /sair to quit.`,
	RunE: chatFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "console", "User the entries are registered for")
	Cmd.Flags().StringVarP(&conversationID, "conversation", "c", "console", "Conversation id")
}

func chatFunc(cmd *cobra.Command, args []string) error {
	c, err := root.NewContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()
	return Run(cmd.Context(), c.GetBot(), cmd.InOrStdin(), cmd.OutOrStdout(), conversationID, userID)
}

// Bot is what the console talks to.
type Bot interface {
	Handle(ctx context.Context, msg chatbot.Message) (chatbot.Response, error)
	Cancel(ctx context.Context, conversationID string) bool
}

// Run reads messages from in until EOF or the quit command and writes the
// bot's replies to out.
func Run(ctx context.Context, bot Bot, in io.Reader, out io.Writer, conversationID, userID string) error {
	scanner := bufio.NewScanner(in)
	prompt(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			prompt(out)
			continue
		case quitCommand:
			return nil
		case cancelCommand:
			if bot.Cancel(ctx, conversationID) {
				fmt.Fprintln(out, "Lançamento cancelado.")
			} else {
				fmt.Fprintln(out, "Nada para cancelar.")
			}
			prompt(out)
			continue
		}

		resp, err := bot.Handle(ctx, chatbot.Message{
			ConversationID: conversationID,
			UserID:         userID,
			Text:           line,
			Origin:         "console",
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp.Reply)
		if len(resp.Options) > 0 {
			fmt.Fprintf(out, "[%s]\n", strings.Join(resp.Options, "] ["))
		}
		prompt(out)
	}
	return scanner.Err()
}

func prompt(out io.Writer) {
	fmt.Fprint(out, "> ")
}
