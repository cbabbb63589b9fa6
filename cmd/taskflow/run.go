package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/taskflow/internal/events"
	"github.com/aristath/taskflow/internal/journal"
	"github.com/aristath/taskflow/internal/plan"
	"github.com/aristath/taskflow/internal/report"
	"github.com/aristath/taskflow/internal/scheduler"
	"github.com/aristath/taskflow/internal/work"
)

// settleTimeout bounds how long a cancelled or timed-out run waits for
// in-flight work to observe cancellation.
const settleTimeout = 5 * time.Second

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Execute a plan and wait for it to finish",
		ArgsUsage: "<plan.yaml>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-concurrent",
				Usage: "Maximum tasks running at once (overrides plan and config)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up waiting after this long (0 waits forever)",
			},
			&cli.BoolFlag{
				Name:  "no-journal",
				Usage: "Do not record transitions in the journal",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the final summary",
			},
		},
		Action: runRun,
	}
}

func runRun(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: taskflow run <plan.yaml>")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	logger := e.logger

	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	maxConcurrent := e.cfg.Scheduler.MaxConcurrent
	if p.MaxConcurrent > 0 {
		maxConcurrent = p.MaxConcurrent
	}
	if cmd.IsSet("max-concurrent") {
		maxConcurrent = int(cmd.Int("max-concurrent"))
	}

	if e.cfg.Metrics.Enabled {
		inm, err := setupMetrics()
		if err != nil {
			return err
		}
		sig := metrics.DefaultInmemSignal(inm)
		defer sig.Stop()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	pm := work.NewProcessManager()
	bus := events.NewEventBus()
	sched := scheduler.New(scheduler.Config{
		MaxConcurrent: maxConcurrent,
		Logger:        logger,
		Bus:           bus,
		Context:       runCtx,
	})

	workEnv := work.Env{
		Processes: pm,
		Locks:     work.NewLockSet(),
		Logger:    logger.Named("work"),
	}
	specs, err := p.Specs(func(t plan.Task) scheduler.WorkFunc {
		return work.FromPlan(p, t, workEnv)
	})
	if err != nil {
		return err
	}

	// Buffers hold every transition the plan can produce, so slow consumers
	// never lose events.
	bufferSize := scheduler.MaxEventsPerTask * len(specs)

	// Recorder and printer stop when the bus closes, not on cancellation,
	// so the final transitions of an interrupted run are still handled.
	var g errgroup.Group

	runID := uuid.NewString()
	var finish func(scheduler.Stats)
	if e.cfg.Journal.Enabled && !cmd.Bool("no-journal") {
		finish, err = startJournal(ctx, &g, e, bus, bufferSize, journal.Run{
			ID:            runID,
			Plan:          path,
			MaxConcurrent: maxConcurrent,
			StartedAt:     time.Now(),
		})
		if err != nil {
			return err
		}
	}

	var printed <-chan events.Event
	if !cmd.Bool("quiet") {
		sub := bus.Subscribe(events.TopicTask, bufferSize)
		printed = sub
		g.Go(func() error {
			for ev := range sub {
				if se, ok := ev.(scheduler.Event); ok {
					fmt.Fprintln(e.out, report.Event(se))
				}
			}
			return nil
		})
	}

	logger.Info("starting run", "run_id", runID, "plan", path, "tasks", len(specs), "max_concurrent", maxConcurrent)
	if _, err := sched.SubmitAll(specs); err != nil {
		// Plan validation already rules this out.
		logger.Error("submitting plan", "error", err)
	}

	waitErr := sched.WaitForAll(ctx, cmd.Duration("timeout"))
	if waitErr != nil {
		logger.Warn("stopping run early", "reason", waitErr)
		cancelRun()
		if err := pm.KillAll(); err != nil {
			logger.Error("killing subprocesses", "error", err)
		}
		if err := sched.WaitForAll(context.Background(), settleTimeout); err != nil {
			logger.Warn("in-flight work did not settle", "error", err)
		}
	}

	stats := sched.Stats()
	diag := sched.Diagnose()
	tasks := sched.GetAllTasks()

	bus.Close()
	if err := g.Wait(); err != nil {
		logger.Error("event consumers", "error", err)
	}
	if printed != nil {
		if n := bus.Dropped(printed); n > 0 {
			logger.Warn("event output incomplete, subscription buffer was full", "dropped", n)
		}
	}
	if finish != nil {
		finish(stats)
	}

	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out, report.Tasks(tasks))
	fmt.Fprintln(e.out, report.Stats(stats))
	if !diag.Healthy() {
		fmt.Fprintln(e.out, report.Diagnosis(diag))
	}
	if finish != nil {
		fmt.Fprintf(e.out, "run id: %s\n", runID)
	}

	return outcome(stats, diag, waitErr)
}

// outcome turns the final state into the command's exit error.
func outcome(stats scheduler.Stats, diag scheduler.Diagnosis, waitErr error) error {
	var result *multierror.Error
	if waitErr != nil {
		result = multierror.Append(result, fmt.Errorf("run did not finish: %w", waitErr))
	}
	if stats.Failed > 0 {
		result = multierror.Append(result, fmt.Errorf("%d task(s) failed", stats.Failed))
	}
	if len(diag.Stranded) > 0 {
		result = multierror.Append(result, fmt.Errorf("%d task(s) can never run", len(diag.Stranded)))
	}
	return result.ErrorOrNil()
}

// startJournal opens the store, records the run and starts a recorder in g
// buffering at least bufferSize events.
// The returned function stores the final stats and closes the store; call it
// after g.Wait.
func startJournal(ctx context.Context, g *errgroup.Group, e *env, bus *events.EventBus, bufferSize int, run journal.Run) (func(scheduler.Stats), error) {
	logger := e.logger.Named("journal")

	store, err := journal.NewSQLiteStore(ctx, e.cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := store.CreateRun(ctx, run); err != nil {
		store.Close()
		return nil, err
	}

	rec := journal.NewRecorder(store, bus, journal.RecorderConfig{
		RunID:      run.ID,
		BufferSize: max(e.cfg.Journal.BufferSize, bufferSize),
		Logger:     e.logger,
	})
	g.Go(func() error {
		return rec.Run(context.WithoutCancel(ctx))
	})

	return func(stats scheduler.Stats) {
		defer store.Close()
		if err := store.FinishRun(context.Background(), run.ID, time.Now(), stats); err != nil {
			logger.Error("finishing run", "run_id", run.ID, "error", err)
		}
		if n := rec.Dropped(); n > 0 {
			logger.Warn("journal is missing transitions", "run_id", run.ID, "dropped", n)
		}
		logger.Debug("journal closed", "run_id", run.ID, "written", rec.Written(), "failed", rec.Failed())
	}, nil
}

// setupMetrics installs an in-memory sink as the global metrics sink. Send
// SIGUSR1 to dump it.
func setupMetrics() (*metrics.InmemSink, error) {
	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := metrics.DefaultConfig("taskflow")
	cfg.EnableHostname = false
	if _, err := metrics.NewGlobal(cfg, inm); err != nil {
		return nil, fmt.Errorf("setting up metrics: %w", err)
	}
	return inm, nil
}
