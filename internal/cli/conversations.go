package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/render"
	"github.com/RichardoC/pad-chat/internal/store"
)

var errNoActive = errors.New("no active conversation")

// conversation returns the conversation with id, or the active one when id
// is empty.
func (a *app) conversation(id string) (*models.Conversation, error) {
	if id == "" {
		active, err := a.store.ActiveID()
		if err != nil {
			return nil, err
		}
		if active == "" {
			return nil, errNoActive
		}
		id = active
	}
	conv, ok, err := a.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return conv, nil
}

func (a *app) printList() error {
	buckets, err := a.store.List(time.Now())
	if err != nil {
		return err
	}
	active, err := a.store.ActiveID()
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, render.List(buckets, active, a.cfg.UI.Width))
	return nil
}

func newListCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations grouped by recency",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getApp().printList()
		},
	}
}

func newShowCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a conversation (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			conv, err := a.conversation(optionalArg(args))
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, render.Transcript(conv, a.cfg.UI.Width, a.cfg.UI.Style))
			return nil
		},
	}
}

func newSwitchCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make another conversation active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			sess, err := a.ctrl.Restore()
			if err != nil {
				return err
			}
			next, err := a.ctrl.SwitchActive(sess, args[0])
			if err != nil {
				return err
			}
			if next.ActiveID != args[0] {
				return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
			}
			fmt.Fprintf(a.out, "Switched to %s\n", args[0])
			return nil
		},
	}
}

func newNewCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation with the next message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			sess, err := a.ctrl.Restore()
			if err != nil {
				return err
			}
			if _, err := a.ctrl.CreatePending(sess); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "The next message starts a new conversation.")
			return nil
		},
	}
}

func newRenameCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ok, err := a.ctrl.Rename(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("conversation %s not renamed: unknown id or blank title", args[0])
			}
			return nil
		},
	}
}

func newDeleteCommand(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if _, err := a.conversation(args[0]); err != nil {
				return err
			}
			sess, err := a.ctrl.Restore()
			if err != nil {
				return err
			}
			_, err = a.ctrl.Delete(sess, args[0])
			return err
		},
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
