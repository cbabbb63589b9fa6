package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/aristath/taskflow/internal/config"
)

func newConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or create configuration files",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration to the project (or --global) config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "global",
						Usage: "Write ~/.taskflow/config.json instead of the project file",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration after merging every layer",
				Action: runConfigShow,
			},
		},
	}
}

// configTarget picks the file config init writes: --config, then --global,
// then the project path.
func configTarget(cmd *cli.Command) (string, error) {
	switch {
	case cmd.IsSet("config"):
		return cmd.String("config"), nil
	case cmd.Bool("global"):
		return config.GlobalPath()
	default:
		return config.ProjectPath(), nil
	}
}

func runConfigInit(_ context.Context, cmd *cli.Command) error {
	path, err := configTarget(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(writerOf(cmd), "wrote %s\n", path)
	return nil
}

func runConfigShow(_ context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(e.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprintln(e.out, string(data))
	return nil
}
