package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/matchagig/internal/chat"
	"github.com/spigell/matchagig/internal/store"
)

const (
	PromptAsk     = "Ask a question"
	PromptHistory = "Show history"
	PromptReset   = "Reset chat"
	PromptExit    = "Exit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat about the current candidate",
	Long: "Without flags chat runs an interactive loop. With --message or --mode it sends one turn and exits.\n" +
		"Modes: explain_fit, interview_questions, red_flags, summary.",
	Args: cobra.NoArgs,
	RunE: withApp(runChat),
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the chat transcript of the current candidate",
	Args:  cobra.NoArgs,
	RunE:  withApp(runChatHistory),
}

var chatResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the transcript and the stateful chat of the current candidate",
	Args:  cobra.NoArgs,
	RunE:  withApp(runChatReset),
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatHistoryCmd, chatResetCmd)

	chatCmd.Flags().StringP("message", "m", "", "send one freeform message")
	chatCmd.Flags().String("mode", "", "send one predefined mode")
	chatCmd.MarkFlagsMutuallyExclusive("message", "mode")
}

func runChat(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	message, _ := cmd.Flags().GetString("message")
	modeName, _ := cmd.Flags().GetString("mode")

	out := cmd.OutOrStdout()

	switch {
	case cmd.Flags().Changed("message"):
		return sendTurn(ctx, a, out, chat.Freeform{Text: message})
	case cmd.Flags().Changed("mode"):
		mode, err := chat.ParseMode(modeName)
		if err != nil {
			return &chat.PreconditionError{Err: err}
		}
		return sendTurn(ctx, a, out, chat.NamedMode{Mode: mode})
	}

	if err := a.session.RequireChatReady(); err != nil {
		return &chat.PreconditionError{Err: err}
	}

	return chatLoop(ctx, a, out)
}

func chatLoop(ctx context.Context, a *application, out io.Writer) error {
	items := []string{PromptAsk}
	for _, m := range chat.Modes() {
		items = append(items, m.Label())
	}
	items = append(items, PromptHistory, PromptReset, PromptExit)

	for {
		actionPrompt := promptui.Select{
			Label: fmt.Sprintf("Chat with %s", a.session.Current().DisplayName()),
			Items: items,
			Size:  len(items),
		}

		_, action, err := actionPrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return err
		}

		switch action {
		case PromptExit:
			return nil
		case PromptHistory:
			history, err := a.chat.History()
			if err != nil {
				return err
			}
			printTranscript(out, history)
			continue
		case PromptReset:
			if err := a.chat.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Chat reset")
			continue
		}

		var in chat.Input
		if action == PromptAsk {
			questionPrompt := promptui.Prompt{Label: "Question"}
			text, err := questionPrompt.Run()
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					continue
				}
				return err
			}
			in = chat.Freeform{Text: text}
		} else {
			mode, err := chat.ParseMode(action)
			if err != nil {
				return err
			}
			in = chat.NamedMode{Mode: mode}
		}

		if err := sendTurn(ctx, a, out, in); err != nil {
			var precondition *chat.PreconditionError
			if !errors.As(err, &precondition) {
				return err
			}
			// Stay in the loop: the user can ask a question and retry.
			fmt.Fprintln(out, precondition.Error())
		}
	}
}

func sendTurn(ctx context.Context, a *application, out io.Writer, in chat.Input) error {
	reply, err := a.chat.Send(ctx, in)
	if reply != nil {
		if reply.FellBack {
			fmt.Fprintln(out, "(stateful chat unavailable, answered by legacy chat)")
		}
		fmt.Fprintln(out, reply.Message.Content)
	}
	return err
}

func runChatHistory(_ context.Context, a *application, cmd *cobra.Command, _ []string) error {
	history, err := a.chat.History()
	if err != nil {
		return err
	}
	printTranscript(cmd.OutOrStdout(), history)
	return nil
}

func runChatReset(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	if err := a.chat.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Chat reset")
	return nil
}

func printTranscript(out io.Writer, history []store.ChatMessage) {
	if len(history) == 0 {
		fmt.Fprintln(out, "No messages yet")
		return
	}

	for _, msg := range history {
		fmt.Fprintf(out, "[%s]\n%s\n\n", msg.Role, strings.TrimSpace(msg.Content))
	}
}
