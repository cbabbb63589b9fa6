package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/aristath/taskflow/internal/plan"
	"github.com/aristath/taskflow/internal/report"
)

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a plan file and print its topological order",
		ArgsUsage: "<plan.yaml>",
		Action:    runValidate,
	}
}

func runValidate(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: taskflow validate <plan.yaml>")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}
	p, err := plan.Parse(data)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s is invalid: %w", path, err)
	}

	order, err := p.Order()
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "%s %s: %d tasks\n", report.StyleStatusComplete.Render("ok"), path, len(p.Tasks))
	fmt.Fprintf(e.out, "order: %s\n", strings.Join(order, " -> "))
	return nil
}
