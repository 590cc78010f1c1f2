// Command chessmind plays chess in the terminal, serves games over HTTP
// and runs move generator checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/config"
	"github.com/hailam/chessmind/internal/logx"
	"github.com/hailam/chessmind/internal/storage"
)

const logFile = "chessmind.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "chessmind:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	flags := append(config.Flags(), &cli.StringFlag{
		Name:    "cpuprofile",
		Usage:   "write a CPU profile to `FILE`",
		Sources: cli.EnvVars("CPUPROFILE"),
	})

	return &cli.Command{
		Name:  "chessmind",
		Usage: "chess engine with a terminal and HTTP front end",
		Flags: flags,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, startProfile(cmd.String("cpuprofile"))
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			pprof.StopCPUProfile()
			return nil
		},
		Commands: []*cli.Command{
			playCommand(),
			serveCommand(),
			perftCommand(),
			analyzeCommand(),
			savesCommand(),
		},
		DefaultCommand: "play",
	}
}

func startProfile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	return nil
}

// env bundles what every command needs.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	closeFn []func() error
}

func (e *env) close() {
	_ = e.log.Sync()
	for i := len(e.closeFn) - 1; i >= 0; i-- {
		_ = e.closeFn[i]()
	}
}

// setup resolves the configuration and builds the logger. When toFile is
// set the log goes to chessmind.log in the data directory so that it does
// not interleave with the board.
func setup(cmd *cli.Command, toFile bool) (*env, error) {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	opts := cfg.LogOptions()
	if toFile {
		dir, err := dataDir(cfg)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		e.closeFn = append(e.closeFn, f.Close)
		opts.Output = f
	}
	if e.log, err = logx.New(opts); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func dataDir(cfg config.Config) (string, error) {
	if cfg.DataDir == "" {
		return storage.GetDataDir()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return "", err
	}
	return cfg.DataDir, nil
}

// openStorage opens the database under the configured data directory.
func (e *env) openStorage() (*storage.Storage, error) {
	dir, err := dataDir(e.cfg)
	if err != nil {
		return nil, err
	}
	dbDir, err := storage.DatabaseDir(dir)
	if err != nil {
		return nil, err
	}
	s, err := storage.Open(dbDir)
	if err != nil {
		return nil, err
	}
	e.closeFn = append(e.closeFn, s.Close)
	return s, nil
}
