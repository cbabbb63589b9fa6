package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v3"

	"github.com/aristath/taskflow/internal/config"
)

func main() {
	// First signal cancels the run; stop() restores default handling after.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand returns the top-level CLI command.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "taskflow",
		Usage: "Run dependency- and priority-aware task plans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Project config file (default .taskflow/config.json)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (trace, debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Emit logs as JSON",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newValidateCommand(),
			newHistoryCommand(),
			newConfigCommand(),
		},
	}
}

// env is what every subcommand needs: merged config, a root logger and the
// writers to report to.
type env struct {
	cfg    *config.Config
	logger hclog.Logger
	out    io.Writer
}

func setup(cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-json") {
		cfg.Log.JSON = cmd.Bool("log-json")
	}

	out := writerOf(cmd)
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "taskflow",
		Level:      hclog.LevelFromString(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     errOut,
	})

	return &env{cfg: cfg, logger: logger, out: out}, nil
}

// writerOf returns the root command's output writer.
func writerOf(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// loadConfig merges the global config with --config when given, or with the
// conventional project path otherwise.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if !cmd.IsSet("config") {
		return config.LoadDefault()
	}
	globalPath, err := config.GlobalPath()
	if err != nil {
		return nil, err
	}
	return config.Load(globalPath, cmd.String("config"))
}
