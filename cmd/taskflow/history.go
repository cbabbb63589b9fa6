package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/aristath/taskflow/internal/journal"
	"github.com/aristath/taskflow/internal/report"
)

func newHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List journaled runs, or the transitions of one run",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "task",
				Usage: "Only show transitions of this task",
			},
			&cli.BoolFlag{
				Name:  "latest",
				Usage: "Only show the last transition of every task",
			},
		},
		Action: runHistory,
	}
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := journal.NewSQLiteStore(ctx, e.cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	runID := cmd.Args().First()
	if runID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(e.out, "No runs recorded.")
			return nil
		}
		fmt.Fprintln(e.out, report.Runs(runs))
		return nil
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	var entries []journal.Entry
	if cmd.Bool("latest") {
		entries, err = store.Latest(ctx, run.ID)
	} else {
		entries, err = store.History(ctx, run.ID, cmd.String("task"))
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(e.out, report.Runs([]journal.Run{run}))
	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out, report.History(entries))
	return nil
}
