package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"confsync/src/backup"
	"confsync/src/config"
	"confsync/src/fsops"
	"confsync/src/safety"
)

// addGlobalFlags adds the persistent flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to the config file (default: $CONFSYNC_CONFIG or ./confsync.yaml)")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug output")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only report errors")
	cmd.PersistentFlags().Bool("no-timestamp", false, "Omit timestamps from log output")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

type options struct {
	ConfigPath  string
	DryRun      bool
	Verbose     bool
	Quiet       bool
	NoTimestamp bool
	Yes         bool
}

func getOptions(cmd *cobra.Command) options {
	flags := cmd.Root().PersistentFlags()
	var o options
	o.ConfigPath, _ = flags.GetString("config")
	o.DryRun, _ = flags.GetBool("dry-run")
	o.Verbose, _ = flags.GetBool("verbose")
	o.Quiet, _ = flags.GetBool("quiet")
	o.NoTimestamp, _ = flags.GetBool("no-timestamp")
	o.Yes, _ = flags.GetBool("yes")
	if o.ConfigPath == "" {
		o.ConfigPath = os.Getenv("CONFSYNC_CONFIG")
	}
	if o.ConfigPath == "" {
		o.ConfigPath = "confsync.yaml"
	}
	return o
}

func (o options) safety() safety.Options {
	return safety.Options{DryRun: o.DryRun, Yes: o.Yes}
}

func newLogger(stderr io.Writer, o options) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableTimestamp: o.NoTimestamp,
		DisableColors:    true,
	})
	switch {
	case o.Verbose:
		log.SetLevel(logrus.DebugLevel)
	case o.Quiet:
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// app bundles the pieces every engine-backed command needs.
type app struct {
	opts    options
	cfg     *config.Config
	log     *logrus.Logger
	exec    *fsops.Executor
	backups *backup.Manager
}

func newApp(cmd *cobra.Command, stderr io.Writer) (*app, error) {
	opts := getOptions(cmd)
	log := newLogger(stderr, opts)
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	exec := &fsops.Executor{DryRun: opts.DryRun, Log: log}
	return &app{
		opts:    opts,
		cfg:     cfg,
		log:     log,
		exec:    exec,
		backups: backup.NewManager(cfg.BackupRoot, cfg.Retention, exec, log),
	}, nil
}

// validatedRegistry runs registry-wide format validation; any failure is
// fatal before the filesystem is touched.
func (a *app) validatedRegistry() (*config.Registry, error) {
	reg := a.cfg.Registry()
	errs := reg.ValidateAll()
	for _, err := range errs {
		a.log.Error(err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%d invalid mapping declaration(s)", len(errs))
	}
	return reg, nil
}
