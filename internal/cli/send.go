package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/pad-chat/internal/chat"
	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/render"
	"github.com/RichardoC/pad-chat/internal/upload"
)

func newSendCommand(getApp func() *app, opts *rootOptions) *cobra.Command {
	var (
		attachments []string
		startNew    bool
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message in the active conversation",
		Long: `Send a message in the active conversation and stream the reply.
With no active conversation, or with --new, a new one is started and given
a generated title after the first reply.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			sess, err := a.ctrl.Restore()
			if err != nil {
				return err
			}
			if startNew {
				if sess, err = a.ctrl.CreatePending(sess); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			atts, err := a.attach(ctx, attachments)
			if err != nil {
				return err
			}
			_, err = a.sendTurn(ctx, opts, sess, strings.Join(args, " "), atts)
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&attachments, "attach", "a", nil, "Image file to attach (repeatable)")
	cmd.Flags().BoolVar(&startNew, "new", false, "Start a new conversation")
	return cmd
}

// attach uploads each file. Files that are not images are skipped with a
// warning; any other failure aborts.
func (a *app) attach(ctx context.Context, paths []string) ([]models.Attachment, error) {
	var atts []models.Attachment
	for _, path := range paths {
		att, err := a.upload.Upload(ctx, path)
		var unsupported *upload.UnsupportedMediaError
		if errors.As(err, &unsupported) {
			a.logger.Warn("skipping attachment", zap.String("file", path), zap.String("type", unsupported.MediaType))
			fmt.Fprintf(a.out, "skipping %s: only images can be attached\n", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, nil
}

func (a *app) sendTurn(ctx context.Context, opts *rootOptions, sess chat.Session, text string, atts []models.Attachment) (chat.Session, error) {
	view := render.NewStreamView(a.out, a.markdown(opts), a.cfg.UI.Width, a.cfg.UI.Style)
	next, _, err := a.ctrl.SendTurn(ctx, sess, text, atts, view)
	if err != nil {
		fmt.Fprintln(a.out)
		if !errors.Is(err, chat.ErrSendInProgress) && !errors.Is(err, chat.ErrEmptyMessage) {
			if werr := a.ctrl.WriteBack(next); werr != nil {
				a.logger.Warn("failed to keep unsent message", zap.String("id", next.ActiveID), zap.Error(werr))
			}
		}
		if errors.Is(err, context.Canceled) {
			return next, errors.New("cancelled")
		}
		return next, err
	}
	return next, nil
}
