package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/render"
)

func lastReply(conv *models.Conversation) (string, error) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == models.RoleAssistant {
			return conv.Messages[i].Content.String(), nil
		}
	}
	return "", errors.New("conversation has no replies yet")
}

// copyReply copies block n of the last reply (0 for all of it).
func (a *app) copyReply(id string, n int) error {
	conv, err := a.conversation(id)
	if err != nil {
		return err
	}
	reply, err := lastReply(conv)
	if err != nil {
		return err
	}
	text, err := render.Selection(reply, n)
	if err != nil {
		return err
	}
	if err := render.Copy(text); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	fmt.Fprintf(a.out, "Copied %d characters.\n", len([]rune(text)))
	return nil
}

func newCopyCommand(getApp func() *app) *cobra.Command {
	var block int
	cmd := &cobra.Command{
		Use:   "copy [id]",
		Short: "Copy the last reply, or one of its code blocks, to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getApp().copyReply(optionalArg(args), block)
		},
	}
	cmd.Flags().IntVarP(&block, "block", "b", 0, "Copy only the n-th code block (1-based)")
	return cmd
}
