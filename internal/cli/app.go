// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/config"
	"github.com/jeranaias/zhai-tui/internal/fallback"
	"github.com/jeranaias/zhai-tui/internal/logger"
	"github.com/jeranaias/zhai-tui/internal/session"
	"github.com/jeranaias/zhai-tui/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP
// =============================================================================

// Options are the global flags.
type Options struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	BaseURL    string
	Strict     bool
	JSON       bool
}

// App is the zhai command line application.
type App struct {
	Opts Options

	// Out and Err default to the process streams
	Out io.Writer
	Err io.Writer
}

// NewApp creates the application with process stdout and stderr.
func NewApp() *App {
	return &App{Out: os.Stdout, Err: os.Stderr}
}

// RootCommand builds the command tree. Running zhai without a subcommand
// starts the front end selected by ui.mode.
func (app *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "zhai",
		Short: "Terminal client for the 翟助手 assistant",
		Long: `zhai talks to the 翟助手 backend. It logs in with a username, streams
replies and reveals them with a typewriter effect.

Run without arguments to start the full screen interface (or the line
based chat when ui.mode is "repl").`,
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := app.loadConfig()
			if err != nil {
				return err
			}
			if cfg.UI.Mode == "repl" {
				return app.runREPL(cmd.Context(), cfg, path)
			}
			return app.runTUI(cmd.Context(), cfg, path)
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	flags := root.PersistentFlags()
	flags.StringVarP(&app.Opts.ConfigPath, "config", "c", "", "config file (default ~/.zhai/config.toml)")
	flags.StringVar(&app.Opts.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&app.Opts.LogFile, "log-file", "", "append logs to this file")
	flags.StringVar(&app.Opts.BaseURL, "url", "", "backend base URL")
	flags.BoolVar(&app.Opts.Strict, "strict", false, "show errors instead of fallback replies")
	flags.BoolVar(&app.Opts.JSON, "json", false, "print machine readable output where supported")

	app.addFrontEndCommands(root)
	app.addSessionCommands(root)
	app.addAskCommand(root)
	app.addHealthCommand(root)
	app.addConfigCommands(root)
	return root
}

// Execute runs the application and returns the process exit code.
func (app *App) Execute(ctx context.Context, args []string) int {
	root := app.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	DisplayError(app.Err, err, app.Opts.JSON)
	return GetExitCode(err)
}

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime holds the wired components of one invocation.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Client     *chatapi.Client
	Store      storage.Store
	Sessions   *session.Store
	Fallback   fallback.Responder
	Log        *log.Logger
}

// Close releases the storage backend and the log file.
func (rt *Runtime) Close() {
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			rt.Log.Warn("close storage", "err", err)
		}
	}
	logger.Close()
}

// loadConfig loads .env, then the config file, then applies flags.
func (app *App) loadConfig() (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	var (
		cfg  *config.Config
		path = app.Opts.ConfigPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		path, _ = config.ConfigPathTOML()
	}
	if err != nil {
		return nil, "", err
	}

	if app.Opts.LogLevel != "" {
		cfg.Logging.Level = app.Opts.LogLevel
	}
	if app.Opts.LogFile != "" {
		cfg.Logging.File = app.Opts.LogFile
	}
	if app.Opts.BaseURL != "" {
		cfg.Server.BaseURL = app.Opts.BaseURL
	}
	if app.Opts.Strict {
		cfg.Fallback.Mode = fallback.ModeOff
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// runtime loads the config and wires it with stderr logging.
func (app *App) runtime(ctx context.Context) (*Runtime, error) {
	cfg, path, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.wire(ctx, cfg, path, false, nil)
}

// wire builds logging, storage, client, fallback and sessions from cfg
// and restores the persisted session. quietLogs keeps stderr clean while
// a full screen UI owns the terminal; onState, when set, observes chat
// request states.
func (app *App) wire(ctx context.Context, cfg *config.Config, path string, quietLogs bool, onState chatapi.StateObserver) (*Runtime, error) {
	if err := logger.Configure(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
		Quiet: quietLogs,
	}); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	lg := logger.WithPrefix("cli")

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	eos, err := chatapi.ParseEndOfStreamPolicy(cfg.Server.EndOfStream)
	if err != nil {
		store.Close()
		logger.Close()
		return nil, err
	}
	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
		BaseURL:     cfg.Server.BaseURL,
		Timeout:     cfg.Server.TimeoutDuration(),
		IdleTimeout: cfg.Server.IdleTimeoutDuration(),
		Charset:     cfg.Server.Charset,
		EndOfStream: eos,
		OnState:     onState,
	})

	fb, err := fallback.New(cfg.Fallback)
	if err != nil {
		store.Close()
		logger.Close()
		return nil, fmt.Errorf("fallback: %w", err)
	}

	sessions := session.NewStore(store, client, session.Options{
		LoginRatePerMinute: cfg.Session.LoginRatePerMinute,
		LoginBurst:         cfg.Session.LoginBurst,
	})
	if sess, ok := sessions.Restore(ctx); ok {
		lg.Debug("session restored", "user", sess.UserName)
	}

	return &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Client:     client,
		Store:      store,
		Sessions:   sessions,
		Fallback:   fb,
		Log:        lg,
	}, nil
}

// requireSession returns the current session or ErrNotLoggedIn.
func (rt *Runtime) requireSession() (session.Session, error) {
	sess, ok := rt.Sessions.Current()
	if !ok {
		return session.Session{}, ErrNotLoggedIn
	}
	return sess, nil
}

// ErrNotLoggedIn is returned by commands that need a saved session.
var ErrNotLoggedIn = errors.New("not logged in (run: zhai login <username>)")
