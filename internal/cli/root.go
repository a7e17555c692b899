// Package cli implements the pad-chat command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardoC/pad-chat/internal/chat"
	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/llm"
	"github.com/RichardoC/pad-chat/internal/store"
	"github.com/RichardoC/pad-chat/internal/upload"
)

var version = "dev"

// app holds everything a command needs. It is built before each command
// runs and closed afterwards.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	ctrl   *chat.Controller
	upload *upload.Client
	out    io.Writer
}

type rootOptions struct {
	configPath string
	verbose    bool
	plain      bool
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newApp(opts *rootOptions, out io.Writer) (*app, error) {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	kv, err := db.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store",
			zap.Error(err),
			zap.String("driver", cfg.Store.Driver),
			zap.String("path", cfg.Store.Path))
		return nil, err
	}
	st := store.New(kv, logger)

	svc := llm.New(llm.Config{
		BaseURL:    cfg.API.BaseURL,
		Model:      cfg.API.Model,
		TitleModel: cfg.API.TitleModel,
		Timeout:    cfg.API.Timeout,
	}, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		ctrl:   chat.New(st, svc, logger, chat.WithTitleGeneration(cfg.API.GenerateTitles)),
		upload: upload.NewClient(cfg.Upload.URL, logger),
		out:    out,
	}, nil
}

func (a *app) Close() error {
	defer a.logger.Sync()
	return a.store.Close()
}

// markdown reports whether replies are rendered rather than streamed raw.
func (a *app) markdown(opts *rootOptions) bool {
	if opts.plain {
		return false
	}
	f, ok := a.out.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// newRootCommand builds the pad-chat command tree. The returned func closes
// whatever the command opened and must be called after Execute.
func newRootCommand() (*cobra.Command, func() error) {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:   "pad-chat",
		Short: "Chat with an OpenAI-compatible model from the terminal",
		Long: `pad-chat keeps a local history of conversations with an
OpenAI-compatible chat completion API and streams replies as they arrive.

Quick Start:
  pad-chat key sk-...             # store your API key
  pad-chat send "Hello"           # send a message in the active conversation
  pad-chat chat                   # interactive session
  pad-chat list                   # conversations grouped by recency`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(opts, cmd.OutOrStdout())
			return err
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.pad-chat/config.toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Print replies without markdown rendering")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	getApp := func() *app { return a }
	root.AddCommand(
		newSendCommand(getApp, opts),
		newChatCommand(getApp, opts),
		newListCommand(getApp),
		newShowCommand(getApp),
		newSwitchCommand(getApp),
		newNewCommand(getApp),
		newRenameCommand(getApp),
		newDeleteCommand(getApp),
		newCopyCommand(getApp),
		newExportCommand(getApp),
		newKeyCommand(getApp),
	)
	closeApp := func() error {
		if a == nil {
			return nil
		}
		err := a.Close()
		a = nil
		return err
	}
	return root, closeApp
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root, closeApp := newRootCommand()
	err := multierr.Append(root.Execute(), closeApp())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
