package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hornetlabs/hornet/internal/analyzer"
	"github.com/hornetlabs/hornet/internal/config"
	"github.com/hornetlabs/hornet/internal/engine"
	"github.com/hornetlabs/hornet/internal/generator"
	"github.com/hornetlabs/hornet/internal/ledger"
	"github.com/hornetlabs/hornet/internal/notify"
	"github.com/hornetlabs/hornet/internal/planner"
	"github.com/hornetlabs/hornet/internal/report"
	"github.com/hornetlabs/hornet/internal/requirements"
	"github.com/hornetlabs/hornet/internal/scanner"
	"github.com/hornetlabs/hornet/internal/unit"
	"github.com/hornetlabs/hornet/internal/watch"
	"github.com/hornetlabs/hornet/internal/workspace"
)

var (
	reportRunID   string
	reportLatest  bool
	historyLimit  int
	watchSchedule string
)

func init() {
	scanCmd := &cobra.Command{
		Use:   "scan [REPO]",
		Short: "Discover callable units in a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	rootCmd.AddCommand(scanCmd)

	planCmd := &cobra.Command{
		Use:   "plan [REPO]",
		Short: "Scan and propose invocation cases for every unit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlan,
	}
	rootCmd.AddCommand(planCmd)

	generateCmd := &cobra.Command{
		Use:   "generate [REPO]",
		Short: "Generate probe scripts from the saved plan",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}
	rootCmd.AddCommand(generateCmd)

	runCmd := &cobra.Command{
		Use:   "run [REPO]",
		Short: "Execute probe scripts and record outcomes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExecute,
	}
	rootCmd.AddCommand(runCmd)

	reportCmd := &cobra.Command{
		Use:   "report [REPO]",
		Short: "Show outcomes of a recorded run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReport,
	}
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID (default: latest)")
	reportCmd.Flags().BoolVar(&reportLatest, "latest", false, "show latest outcome per unit across runs")
	rootCmd.AddCommand(reportCmd)

	historyCmd := &cobra.Command{
		Use:   "history UNIT [REPO]",
		Short: "Show the recorded history of one unit",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [REPO]",
		Short: "Re-run the pipeline when source files change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron expression for periodic re-runs")
	rootCmd.AddCommand(watchCmd)
}

// session bundles everything a command needs for one repository.
type session struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *analyzer.Registry
	repo      string
	paths     *workspace.Paths
	overrides *config.RepoOverrides
	notifier  notify.Notifier
}

func newSession(args []string) (*session, error) {
	repo := "."
	if len(args) > 0 {
		repo = args[0]
	}
	repo, err := filepath.Abs(repo)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(repo); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", repo)
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overrides, err := config.LoadRepoOverrides(repo)
	if err != nil {
		return nil, err
	}
	cfg = overrides.Apply(cfg)

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	paths, err := workspace.Ensure(cfg.General.StoreRoot, repo)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		registry:  analyzer.Default(),
		repo:      repo,
		paths:     paths,
		overrides: overrides,
		notifier: notify.NewMultiNotifier(
			notify.NewDesktopNotifier(cfg.Notifications.Desktop),
			notify.NewWebhookNotifier(cfg.Notifications.Webhook),
		),
	}, nil
}

func (s *session) scan(ctx context.Context) ([]unit.Unit, error) {
	sc := scanner.New(s.registry, s.logger)
	sc.SetIgnorePatterns(s.overrides.IgnorePatterns())
	return sc.Scan(ctx, s.repo)
}

func (s *session) plan(ctx context.Context) (*unit.Plan, error) {
	units, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := planner.New(s.registry, s.logger).Plan(s.repo, units)
	if err != nil {
		return nil, err
	}
	if err := planner.Save(plan, s.paths.PlanPath); err != nil {
		return nil, err
	}
	if err := requirements.Write(s.repo, units, plan, s.paths.Requirements); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *session) engine() *engine.Engine {
	return engine.New(engine.Config{
		MaxWorkers:   s.cfg.Engine.MaxWorkers,
		Timeout:      s.cfg.ScriptTimeout(),
		Interpreters: s.cfg.Interpreters,
	}, s.logger)
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	units, err := s.scan(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tLANG\tPARAMS\tLINES")
	for _, u := range units {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d-%d\n", u.ID, u.Language, len(u.Params), u.StartLine, u.EndLine)
	}
	w.Flush()
	fmt.Printf("\n%d units discovered\n", len(units))
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	plan, err := s.plan(cmd.Context())
	if err != nil {
		return err
	}

	low := 0
	cases := 0
	for _, up := range plan.Units {
		cases += len(up.Cases)
		if up.Confidence == unit.ConfidenceLow {
			low++
		}
	}
	fmt.Printf("Planned %d units (%d cases, %d low confidence)\n", len(plan.Units), cases, low)
	fmt.Printf("Plan: %s\n", s.paths.PlanPath)
	fmt.Printf("Requirements: %s\n", s.paths.Requirements)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	plan, err := planner.Load(s.paths.PlanPath)
	if err != nil {
		return fmt.Errorf("no plan found, run 'hornet plan' first: %w", err)
	}

	scripts, skipped, err := generator.New(s.registry, s.logger).Generate(plan, s.paths.Scripts)
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d scripts in %s\n", len(scripts), s.paths.Scripts)
	for _, sk := range skipped {
		fmt.Printf("  skipped %s: %v\n", sk.Unit, sk.Err)
	}
	return nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	return executePipeline(cmd.Context(), s, false)
}

// executePipeline runs scripts from the workspace and records outcomes.
// When refresh is true the plan and scripts are rebuilt first.
func executePipeline(ctx context.Context, s *session, refresh bool) error {
	if refresh {
		plan, err := s.plan(ctx)
		if err != nil {
			return err
		}
		if _, _, err := generator.New(s.registry, s.logger).Generate(plan, s.paths.Scripts); err != nil {
			return err
		}
	}

	eng := s.engine()
	scripts, err := eng.LoadScripts(s.paths.Scripts)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		return fmt.Errorf("no scripts in %s, run 'hornet generate' first", s.paths.Scripts)
	}
	if plan, err := planner.Load(s.paths.PlanPath); err == nil {
		scripts = generator.New(s.registry, s.logger).Resolve(plan, scripts)
	}

	store, err := ledger.New(s.paths.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.CreateRun(s.repo)
	if err != nil {
		return err
	}

	writer := ledger.NewWriter(store, s.logger)
	results := eng.Execute(ctx, s.repo, scripts, func(r engine.Result) {
		writer.Append(r.UnitRun(run.ID))
		fmt.Printf("  %s %s\n", r.Status, r.UnitName)
	})
	recorded := writer.Close()

	if err := store.CloseRun(run.ID); err != nil {
		return err
	}
	s.logger.Info("run complete",
		zap.String("run_id", run.ID),
		zap.Int("executed", len(results)),
		zap.Int("recorded", recorded))

	closed, err := store.GetRun(run.ID)
	if err != nil {
		return err
	}
	unitRuns, err := store.UnitRuns(run.ID)
	if err != nil {
		return err
	}
	plan, _ := planner.Load(s.paths.PlanPath)

	fmt.Println()
	report.WriteRun(os.Stdout, closed, unitRuns, plan)

	var passed, failed, errored int
	for _, ur := range unitRuns {
		switch ur.Status {
		case unit.StatusPassed:
			passed++
		case unit.StatusFailed:
			failed++
		case unit.StatusErrored:
			errored++
		}
	}
	if err := s.notifier.Send(notify.ForRun(s.repo, run.ID, passed, failed, errored)); err != nil {
		s.logger.Warn("notification failed", zap.Error(err))
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	store, err := ledger.New(s.paths.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if reportLatest {
		runs, err := store.LatestPerUnit(s.repo)
		if err != nil {
			return err
		}
		report.WriteLatest(os.Stdout, s.repo, runs)
		return nil
	}

	var run *unit.Run
	if reportRunID != "" {
		run, err = store.GetRun(reportRunID)
	} else {
		run, err = store.LatestRun(s.repo)
	}
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No recorded runs")
		return nil
	}

	unitRuns, err := store.UnitRuns(run.ID)
	if err != nil {
		return err
	}
	plan, _ := planner.Load(s.paths.PlanPath)
	report.WriteRun(os.Stdout, run, unitRuns, plan)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	unitName := args[0]
	s, err := newSession(args[1:])
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	store, err := ledger.New(s.paths.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.History(s.repo, unitName, historyLimit)
	if err != nil {
		return err
	}
	report.WriteHistory(os.Stdout, unitName, runs)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(args)
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rerun := func(ctx context.Context) error {
		return executePipeline(ctx, s, true)
	}

	fmt.Printf("Watching %s\n", s.repo)
	if err := rerun(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial run: %v\n", err)
	}

	suffixes := []string{".py", ".js", ".mjs", ".cjs"}
	watcher, err := watch.NewWatcher(s.repo, suffixes, func(files []string) {
		fmt.Printf("\n%d files changed, re-running\n", len(files))
		if err := rerun(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "re-run: %v\n", err)
		}
	}, s.logger)
	if err != nil {
		return err
	}
	if s.cfg.Watch.DebounceMillis > 0 {
		watcher.SetDebounce(time.Duration(s.cfg.Watch.DebounceMillis) * time.Millisecond)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	schedule := watchSchedule
	if schedule == "" {
		schedule = s.cfg.Watch.Schedule
	}
	if schedule != "" {
		sched, err := watch.NewSchedule(schedule, s.logger)
		if err != nil {
			return err
		}
		fmt.Printf("Scheduled re-runs: %s (next %s)\n", schedule, sched.Next(time.Now()).Format(time.RFC3339))
		go sched.Run(ctx, rerun)
	}

	<-ctx.Done()
	fmt.Println("\nStopping")
	return nil
}
