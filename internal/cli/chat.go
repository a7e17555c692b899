package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/RichardoC/pad-chat/internal/chat"
	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/models"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

const replHelp = `Commands:
  /new              start a new conversation
  /switch <id>      switch to another conversation
  /list             list conversations
  /attach <file>    attach an image to the next message
  /detach           drop pending attachments
  /rename <title>   rename the active conversation
  /delete [id]      delete a conversation (default: the active one)
  /copy [n]         copy the last reply, or its n-th code block
  /quit             leave
`

// repl is the state of an interactive chat session.
type repl struct {
	app      *app
	opts     *rootOptions
	sess     chat.Session
	attached []models.Attachment
}

func newChatCommand(getApp func() *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			sess, err := a.ctrl.Restore()
			if err != nil {
				return err
			}
			r := &repl{app: a, opts: opts, sess: sess}
			return r.run(cmd.Context())
		},
	}
}

func historyFile() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func (r *repl) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyFile()
	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	if !r.sess.Pending() {
		fmt.Fprintf(r.app.out, "Continuing %s (%d messages). /help for commands.\n", r.sess.ActiveID, len(r.sess.Messages))
	} else {
		fmt.Fprintln(r.app.out, "New conversation. /help for commands.")
	}

	for {
		input, err := line.Prompt(promptStyle.Render("you> "))
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.app.out)
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		more, err := r.handle(ctx, input)
		if err != nil {
			fmt.Fprintf(r.app.out, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
		if !more {
			return nil
		}
	}
}

// handle runs one line of input. It returns false when the session should
// end.
func (r *repl) handle(ctx context.Context, input string) (bool, error) {
	if !strings.HasPrefix(input, "/") {
		return true, r.send(ctx, input)
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	a := r.app

	switch name {
	case "/quit", "/exit":
		return false, nil
	case "/help":
		fmt.Fprint(a.out, replHelp)
	case "/new":
		sess, err := a.ctrl.CreatePending(r.sess)
		if err != nil {
			return true, err
		}
		r.sess = sess
		fmt.Fprintln(a.out, "New conversation.")
	case "/switch":
		if arg == "" {
			return true, errors.New("usage: /switch <id>")
		}
		sess, err := a.ctrl.SwitchActive(r.sess, arg)
		if err != nil {
			return true, err
		}
		if sess.ActiveID != arg {
			return true, fmt.Errorf("no conversation %s", arg)
		}
		r.sess = sess
		fmt.Fprintf(a.out, "Switched to %s (%d messages).\n", arg, len(sess.Messages))
	case "/list":
		return true, a.printList()
	case "/attach":
		if arg == "" {
			return true, errors.New("usage: /attach <file>")
		}
		atts, err := a.attach(ctx, []string{arg})
		if err != nil {
			return true, err
		}
		r.attached = append(r.attached, atts...)
		if len(atts) > 0 {
			fmt.Fprintf(a.out, "Attached %s (%d pending).\n", filepath.Base(arg), len(r.attached))
		}
	case "/detach":
		r.attached = nil
		fmt.Fprintln(a.out, "Attachments cleared.")
	case "/rename":
		if r.sess.Pending() {
			return true, errNoActive
		}
		ok, err := a.ctrl.Rename(r.sess.ActiveID, arg)
		if err != nil {
			return true, err
		}
		if !ok {
			return true, errors.New("title must not be blank")
		}
	case "/delete":
		id := arg
		if id == "" {
			if r.sess.Pending() {
				return true, errNoActive
			}
			id = r.sess.ActiveID
		}
		if _, err := a.conversation(id); err != nil {
			return true, err
		}
		sess, err := a.ctrl.Delete(r.sess, id)
		if err != nil {
			return true, err
		}
		r.sess = sess
		fmt.Fprintf(a.out, "Deleted %s.\n", id)
	case "/copy":
		n := 0
		if arg != "" {
			var err error
			if n, err = strconv.Atoi(arg); err != nil {
				return true, fmt.Errorf("usage: /copy [n]")
			}
		}
		if r.sess.Pending() {
			return true, errNoActive
		}
		return true, a.copyReply(r.sess.ActiveID, n)
	default:
		return true, fmt.Errorf("unknown command %s, try /help", name)
	}
	return true, nil
}

func (r *repl) send(ctx context.Context, text string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	sess, err := r.app.sendTurn(ctx, r.opts, r.sess, text, r.attached)
	r.sess = sess
	if errors.Is(err, chat.ErrSendInProgress) {
		return err
	}
	r.attached = nil
	return err
}
