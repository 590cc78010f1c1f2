package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/console"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/server"
	"github.com/hailam/chessmind/internal/storage"
)

var fenFlag = &cli.StringFlag{
	Name:  "fen",
	Usage: "start from a FEN position",
}

func positionFrom(cmd *cli.Command) (*board.Position, error) {
	fen := cmd.String("fen")
	if fen == "" {
		return board.NewPosition(), nil
	}
	return board.ParseFEN(fen)
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play in the terminal",
		Flags: []cli.Flag{
			fenFlag,
			&cli.StringFlag{Name: "white", Usage: "human or engine"},
			&cli.StringFlag{Name: "black", Usage: "human or engine"},
			&cli.BoolFlag{Name: "no-db", Usage: "do not open the database"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()

			pos, err := positionFrom(cmd)
			if err != nil {
				return err
			}

			eng := engine.NewEngine(withLogger(e.cfg.EngineConfig(), e.log))
			g := game.New(eng, e.log)
			if err := g.SetupPosition(pos); err != nil {
				return err
			}

			players := game.Players{
				WhiteHuman:      true,
				BlackHuman:      true,
				WhiteDifficulty: engine.Difficulty(e.cfg.WhiteDifficulty),
				BlackDifficulty: engine.Difficulty(e.cfg.BlackDifficulty),
			}

			var opts console.Options
			if !cmd.Bool("no-db") {
				store, err := e.openStorage()
				if err != nil {
					return err
				}
				opts.Store = store
				g.SetRecorder(store)

				prefs, err := store.LoadPreferences()
				if err != nil {
					return err
				}
				players = game.PlayersFromPreferences(prefs)
				if !cmd.IsSet("min-think-time") {
					eng.SetMinThinkTime(prefs.MinThinkTime)
				}
			}
			if cmd.IsSet("white-difficulty") {
				players.WhiteDifficulty = engine.Difficulty(e.cfg.WhiteDifficulty)
			}
			if cmd.IsSet("black-difficulty") {
				players.BlackDifficulty = engine.Difficulty(e.cfg.BlackDifficulty)
			}
			if err := sideFlag(cmd, "white", &players.WhiteHuman); err != nil {
				return err
			}
			if err := sideFlag(cmd, "black", &players.BlackHuman); err != nil {
				return err
			}
			g.SetPlayers(players)

			opts.Logger = e.log
			return console.New(g, eng, opts).Run(ctx)
		},
	}
}

func sideFlag(cmd *cli.Command, name string, human *bool) error {
	switch strings.ToLower(cmd.String(name)) {
	case "":
	case "human":
		*human = true
	case "engine":
		*human = false
	default:
		return fmt.Errorf("--%s must be human or engine", name)
	}
	return nil
}

func withLogger(cfg engine.Config, log *zap.Logger) engine.Config {
	cfg.Logger = log
	return cfg
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve games over HTTP and websockets",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-db", Usage: "disable saves and statistics"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.close()

			opts := server.Options{
				Engine:          e.cfg.EngineConfig(),
				WhiteDifficulty: engine.Difficulty(e.cfg.WhiteDifficulty),
				BlackDifficulty: engine.Difficulty(e.cfg.BlackDifficulty),
				Logger:          e.log,
			}
			if !cmd.Bool("no-db") {
				if opts.Storage, err = e.openStorage(); err != nil {
					return err
				}
			}
			return server.New(opts).Listen(ctx, e.cfg.Addr)
		},
	}
}

func perftCommand() *cli.Command {
	return &cli.Command{
		Name:  "perft",
		Usage: "count leaf nodes of the legal move tree",
		Flags: []cli.Flag{
			fenFlag,
			&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 4, Usage: "depth in half-turns"},
			&cli.BoolFlag{Name: "divide", Usage: "print the count below each root move"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.close()

			pos, err := positionFrom(cmd)
			if err != nil {
				return err
			}
			depth := cmd.Int("depth")
			if depth < 0 {
				return errors.New("depth must not be negative")
			}

			eng := engine.NewEngine(withLogger(e.cfg.EngineConfig(), e.log))
			start := time.Now()
			var nodes int64
			if cmd.Bool("divide") {
				counts := board.Divide(eng.Analyzer(), pos, depth)
				moves := make([]board.Move, 0, len(counts))
				for m := range counts {
					moves = append(moves, m)
				}
				sort.Slice(moves, func(i, j int) bool { return moves[i].String() < moves[j].String() })
				for _, m := range moves {
					fmt.Printf("%s: %d\n", m, counts[m])
					nodes += counts[m]
				}
			} else {
				nodes = eng.Perft(pos, depth)
			}
			elapsed := time.Since(start)

			fmt.Printf("Nodes: %s\n", humanize.Comma(nodes))
			fmt.Printf("Time: %v\n", elapsed.Round(time.Millisecond))
			if elapsed > 0 {
				fmt.Printf("NPS: %s\n", humanize.Comma(int64(float64(nodes)/elapsed.Seconds())))
			}
			return nil
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "show the status, legal moves and engine choice for a position",
		Flags: []cli.Flag{
			fenFlag,
			&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 2, Usage: "search depth"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.close()

			pos, err := positionFrom(cmd)
			if err != nil {
				return err
			}
			depth := cmd.Int("depth")
			if depth < 1 {
				return errors.New("depth must be positive")
			}

			eng := engine.NewEngine(withLogger(e.cfg.EngineConfig(), e.log))
			an := eng.Analyzer().Analyze(pos)

			status := an.Status().String()
			if status == "" {
				status = "Normal"
			}
			fmt.Println(pos.String())
			fmt.Printf("Side to move: %s\n", pos.SideToMove)
			fmt.Printf("Status: %s\n", status)

			moves := an.Moves()
			strs := make([]string, len(moves))
			for i, m := range moves {
				strs[i] = m.String()
			}
			fmt.Printf("Legal moves (%d): %s\n", len(moves), strings.Join(strs, " "))

			start := time.Now()
			ht, ok := eng.Search(ctx, pos, engine.Difficulty(depth))
			if !ok {
				fmt.Println("Best move: none")
				return nil
			}
			fmt.Printf("Best move: %s (value %d, %v)\n", ht.Move(), ht.Value, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func savesCommand() *cli.Command {
	return &cli.Command{
		Name:  "saves",
		Usage: "manage saved games",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list saved games",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := setup(cmd, false)
					if err != nil {
						return err
					}
					defer e.close()
					store, err := e.openStorage()
					if err != nil {
						return err
					}
					saves, err := store.ListGames()
					if err != nil {
						return err
					}
					for _, s := range saves {
						fmt.Printf("%-20s %s to move, %d half-turns, saved %s\n",
							s.Name, s.SideToMove, s.HalfTurns, humanize.Time(s.SavedAt))
					}
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a saved game",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return errors.New("missing save name")
					}
					e, err := setup(cmd, false)
					if err != nil {
						return err
					}
					defer e.close()
					store, err := e.openStorage()
					if err != nil {
						return err
					}
					return store.DeleteGame(name)
				},
			},
			{
				Name:      "export",
				Usage:     "write a saved game to a text file (default: NAME.txt in the saves directory)",
				ArgsUsage: "NAME [FILE]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if n := cmd.Args().Len(); n < 1 || n > 2 {
						return errors.New("usage: saves export NAME [FILE]")
					}
					e, err := setup(cmd, false)
					if err != nil {
						return err
					}
					defer e.close()
					store, err := e.openStorage()
					if err != nil {
						return err
					}
					snap, err := store.LoadGame(cmd.Args().Get(0))
					if err != nil {
						return err
					}
					path := cmd.Args().Get(1)
					if path == "" {
						dir, err := dataDir(e.cfg)
						if err != nil {
							return err
						}
						if dir, err = storage.SavesDir(dir); err != nil {
							return err
						}
						path = filepath.Join(dir, cmd.Args().Get(0)+".txt")
					}
					f, err := os.Create(path)
					if err != nil {
						return err
					}
					if err := storage.Encode(f, snap); err != nil {
						f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return err
					}
					fmt.Println(path)
					return nil
				},
			},
		},
	}
}
