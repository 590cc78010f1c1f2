// Package config holds the runtime settings shared by the chessmind
// commands and binds them to command line flags and CHESSMIND_* variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hailam/chessmind/internal/cache"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/logx"
)

// Flag names.
const (
	FlagDataDir         = "data-dir"
	FlagLogLevel        = "log-level"
	FlagLogDev          = "log-dev"
	FlagLogConsole      = "log-console"
	FlagCacheCapacity   = "cache-capacity"
	FlagWorkers         = "workers"
	FlagMinThinkTime    = "min-think-time"
	FlagWhiteDifficulty = "white-difficulty"
	FlagBlackDifficulty = "black-difficulty"
	FlagAddr            = "addr"
	FlagSeed            = "seed"
)

const envPrefix = "CHESSMIND_"

// Config is the resolved runtime configuration.
type Config struct {
	DataDir    string // empty means the platform data directory
	LogLevel   string
	LogDev     bool
	LogConsole bool

	CacheCapacity   int
	Workers         int
	MinThinkTime    time.Duration
	WhiteDifficulty int
	BlackDifficulty int
	Seed            uint64

	Addr string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:        "info",
		LogConsole:      true,
		CacheCapacity:   cache.DefaultCapacity,
		Workers:         runtime.GOMAXPROCS(0),
		MinThinkTime:    engine.DefaultMinThinkTime,
		WhiteDifficulty: int(engine.Medium),
		BlackDifficulty: int(engine.Medium),
		Addr:            ":3000",
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logx.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.CacheCapacity <= 0 {
		errs = append(errs, fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.MinThinkTime < 0 {
		errs = append(errs, fmt.Errorf("min think time must not be negative, got %v", c.MinThinkTime))
	}
	for _, d := range []int{c.WhiteDifficulty, c.BlackDifficulty} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("difficulty must be positive, got %d", d))
		}
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	return errors.Join(errs...)
}

// EngineConfig returns the engine settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		CacheCapacity: c.CacheCapacity,
		Workers:       c.Workers,
		MinThinkTime:  c.MinThinkTime,
		Seed:          c.Seed,
	}
}

// LogOptions returns the logger settings.
func (c *Config) LogOptions() logx.Options {
	return logx.Options{Level: c.LogLevel, Dev: c.LogDev, Console: c.LogConsole}
}

func env(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + name)
}

// Flags returns the flags that populate a Config, with defaults taken
// from Default.
func Flags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagDataDir,
			Usage:   "directory for the database and saves",
			Sources: env("DATA_DIR"),
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Aliases: []string{"l"},
			Usage:   "log level (debug, info, warn, error)",
			Value:   d.LogLevel,
			Sources: env("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    FlagLogDev,
			Usage:   "development log encoding",
			Sources: env("LOG_DEV"),
		},
		&cli.BoolFlag{
			Name:    FlagLogConsole,
			Usage:   "console log encoding instead of JSON",
			Value:   d.LogConsole,
			Sources: env("LOG_CONSOLE"),
		},
		&cli.IntFlag{
			Name:    FlagCacheCapacity,
			Usage:   "position cache entries",
			Value:   d.CacheCapacity,
			Sources: env("CACHE_CAPACITY"),
		},
		&cli.IntFlag{
			Name:    FlagWorkers,
			Aliases: []string{"w"},
			Usage:   "parallel search workers",
			Value:   d.Workers,
			Sources: env("WORKERS"),
		},
		&cli.DurationFlag{
			Name:    FlagMinThinkTime,
			Usage:   "minimum time before an engine move is delivered",
			Value:   d.MinThinkTime,
			Sources: env("MIN_THINK_TIME"),
		},
		&cli.IntFlag{
			Name:    FlagWhiteDifficulty,
			Usage:   "search depth when the engine plays white",
			Value:   d.WhiteDifficulty,
			Sources: env("WHITE_DIFFICULTY"),
		},
		&cli.IntFlag{
			Name:    FlagBlackDifficulty,
			Usage:   "search depth when the engine plays black",
			Value:   d.BlackDifficulty,
			Sources: env("BLACK_DIFFICULTY"),
		},
		&cli.StringFlag{
			Name:    FlagAddr,
			Usage:   "HTTP listen address",
			Value:   d.Addr,
			Sources: env("ADDR"),
		},
		&cli.Uint64Flag{
			Name:    FlagSeed,
			Usage:   "tie-break seed (0 picks one at random)",
			Sources: env("SEED"),
		},
	}
}

// FromCommand reads a validated Config from parsed flags.
func FromCommand(cmd *cli.Command) (Config, error) {
	c := Config{
		DataDir:         cmd.String(FlagDataDir),
		LogLevel:        cmd.String(FlagLogLevel),
		LogDev:          cmd.Bool(FlagLogDev),
		LogConsole:      cmd.Bool(FlagLogConsole),
		CacheCapacity:   cmd.Int(FlagCacheCapacity),
		Workers:         cmd.Int(FlagWorkers),
		MinThinkTime:    cmd.Duration(FlagMinThinkTime),
		WhiteDifficulty: cmd.Int(FlagWhiteDifficulty),
		BlackDifficulty: cmd.Int(FlagBlackDifficulty),
		Addr:            cmd.String(FlagAddr),
		Seed:            cmd.Uint64(FlagSeed),
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}
