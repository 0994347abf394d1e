package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/capture"
	"github.com/jwulff/minutes/internal/chat"
	"github.com/jwulff/minutes/internal/config"
	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/executor"
	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/media"
	"github.com/jwulff/minutes/internal/orchestrator"
	"github.com/jwulff/minutes/internal/session"
)

var (
	configPath string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "minutes",
		Short: "Record meetings and get transcripts, summaries and answers",
		Long: `minutes records or uploads meeting audio, sends it to the summarization
API and shows the transcript and summary. Without a subcommand it opens the
terminal UI when attached to a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return cmd.Help()
			}
			return runTUI(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "path to the YAML config file")
	flags.StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newTUICmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newPasswdCmd(),
		newProcessCmd(),
		newRecordCmd(),
		newChatCmd(),
		newAgentsCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newWatchCmd(),
		newMCPCmd(),
		newHealthCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "minutes: %v\n", err)
		os.Exit(1)
	}
}

var errNotLoggedIn = errors.New("not logged in, run `minutes login`")

// env is what every command shares: config, logger, local store and API
// client.
type env struct {
	cfg    *config.Config
	log    logger.Logger
	store  *db.Store
	client *api.Client
	gate   *session.Gate

	closers []io.Closer
}

type envOptions struct {
	// logFile sends logs to the data dir instead of stderr.
	logFile bool
}

func openEnv(cmd *cobra.Command, opts envOptions) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	e := &env{cfg: cfg}
	if opts.logFile {
		log, closer, err := logger.NewFile(cfg.Logging.Level, cfg.LogPath())
		if err != nil {
			return nil, err
		}
		e.log = log
		e.closers = append(e.closers, closer)
	} else {
		e.log = logger.NewWithWriter(cfg.Logging.Level, cmd.ErrOrStderr())
	}

	store, err := db.Open(cfg.DBPath())
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store = store
	e.closers = append(e.closers, store)

	e.client = api.New(cfg.API.BaseURL, api.NewHTTPClient(cfg.API.Timeout), e.log)
	e.gate = session.NewGate(store, e.client, e.log)
	return e, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
	e.closers = nil
}

// user returns the logged-in user or errNotLoggedIn.
func (e *env) user() (api.User, error) {
	u, err := e.gate.Check()
	if errors.Is(err, session.ErrNotAuthenticated) {
		return api.User{}, errNotLoggedIn
	}
	return u, err
}

func (e *env) newFlow() *orchestrator.Orchestrator {
	prober := media.NewProber(executor.New(), e.cfg.Capture.FFprobePath)
	return orchestrator.New(e.client, prober, e.store, e.log)
}

func (e *env) newChat() *chat.Conversation {
	return chat.New(e.client, nil, e.log)
}

// newSource returns the local ffmpeg recorder for microphone capture and
// the server-side recorder otherwise.
func (e *env) newSource(typ capture.Type) capture.Source {
	if !typ.Local() {
		return capture.NewSystemRecorder(e.client, typ, e.log)
	}
	c := e.cfg.Capture
	return capture.NewRecorder(executor.New(), capture.Options{
		FFmpegPath:  c.FFmpegPath,
		InputFormat: c.InputFormat,
		Device:      c.Device,
		Bitrate:     c.Bitrate,
		Hints: capture.Hints{
			SampleRate:       c.SampleRate,
			Channels:         c.Channels,
			EchoCancellation: *c.EchoCancel,
			NoiseSuppression: *c.NoiseSuppress,
		},
	}, e.log)
}
