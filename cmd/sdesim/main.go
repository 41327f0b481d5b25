package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/automation"
	"github.com/san-kum/sdesim/internal/brownian"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/export"
	"github.com/san-kum/sdesim/internal/logger"
	"github.com/san-kum/sdesim/internal/optim"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var (
	dataDir   string
	logLevel  string
	logFormat string

	scheme     string
	x0         float64
	t0         float64
	horizon    float64
	steps      int
	paths      int
	seed       uint64
	workers    int
	validate   bool
	params     map[string]string
	configFile string
	preset     string

	// export-svg
	svgOut   string
	svgPaths int

	// converge
	fineSteps int
	levels    int

	// sweep
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepCount int

	// calibrate
	grid         map[string]string
	targetMetric string
	targetValue  float64

	// live
	livePaths int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sdesim",
		Short:         "ensemble simulation of scalar stochastic differential equations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.ForFormat(logFormat, logLevel, os.Stderr)
			if err != nil {
				return err
			}
			logger.SetDefault(log)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sdesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate an ensemble and save it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models, their parameters and the available schemes",
		RunE:  listModels,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the ensemble mean and quantile band of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run paths to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render sample paths to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&svgPaths, "paths", 20, "number of sample paths to draw")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [scheme1] [scheme2] ...",
		Short: "compare schemes on the same Brownian paths",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareSchemes,
	}
	addSimFlags(compareCmd)

	convergeCmd := &cobra.Command{
		Use:   "converge [model]",
		Short: "estimate strong convergence order against the exact solution",
		Args:  cobra.ExactArgs(1),
		RunE:  convergence,
	}
	addSimFlags(convergeCmd)
	convergeCmd.Flags().IntVar(&fineSteps, "fine-steps", 512, "steps on the reference grid (power of two)")
	convergeCmd.Flags().IntVar(&levels, "levels", 5, "number of coarsening levels")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "sweep one model parameter and report terminal statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "vary", "sigma", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 5, "number of values")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [model]",
		Short: "grid search model parameters so a metric hits a target",
		Args:  cobra.ExactArgs(1),
		RunE:  calibrate,
	}
	addSimFlags(calibrateCmd)
	calibrateCmd.Flags().StringToStringVar(&grid, "grid", nil, "search range, e.g. --grid sigma=0.1:0.5:9")
	calibrateCmd.Flags().StringVar(&targetMetric, "metric", "stddev", "metric to match")
	calibrateCmd.Flags().Float64Var(&targetValue, "target", 0, "target metric value")
	calibrateCmd.MarkFlagRequired("grid")
	calibrateCmd.MarkFlagRequired("target")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run simulation with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&livePaths, "show", 8, "number of sample paths to draw")

	rootCmd.AddCommand(runCmd, listCmd, modelsCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd,
		presetsCmd, compareCmd, convergeCmd, scenarioCmd, sweepCmd, calibrateCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scheme, "scheme", config.DefaultScheme, "scheme (euler, milstein)")
	cmd.Flags().Float64Var(&x0, "x0", config.DefaultX0, "initial value")
	cmd.Flags().Float64Var(&t0, "t0", 0, "start time")
	cmd.Flags().Float64Var(&horizon, "horizon", config.DefaultHorizon, "end time")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of time steps")
	cmd.Flags().IntVar(&paths, "paths", config.DefaultPaths, "number of paths")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 1, "goroutines per step")
	cmd.Flags().BoolVar(&validate, "validate", true, "reject NaN or Inf states")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "model parameter, e.g. -p mu=0.05 -p sigma=0.2")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig layers defaults, then a preset, then a config file, then
// any flag set explicitly on the command line.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model
	if model != config.DefaultModel {
		cfg.Params = map[string]float64{}
	}

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
		cfg.Model = model
	}

	flags := cmd.Flags()
	if flags.Changed("scheme") || (preset == "" && configFile == "") {
		cfg.Scheme = scheme
	}
	if flags.Changed("x0") {
		cfg.X0 = x0
	}
	if flags.Changed("t0") {
		cfg.T0 = t0
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("paths") {
		cfg.Paths = paths
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("validate") {
		cfg.ValidateState = validate
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	for k, v := range params {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		cfg.Params[k] = f
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.ForFormat(logFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return cfg, nil
}

// stepLogger builds the logger for one scenario step. An explicit
// --log-level wins over the level in the step.
func stepLogger(cmd *cobra.Command) automation.LoggerFactory {
	override := cmd.Flags().Changed("log-level")
	return func(level string) *slog.Logger {
		if override || level == "" {
			level = logLevel
		}
		log, err := logger.ForFormat(logFormat, level, os.Stderr)
		if err != nil {
			return logger.Default
		}
		return log
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, logger.Default)
	if err := exp.SetupFromRegistry(experiment.NewRegistry()); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s with %s (%d paths, %d steps)...\n", cfg.Model, cfg.Scheme, cfg.Paths, cfg.Steps)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tSCHEME\tTIME\tHORIZON\tSTEPS\tPATHS\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Scheme,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Horizon,
			run.Steps,
			run.Paths,
			run.Seed,
		)
	}

	return w.Flush()
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPARAMETERS\tPRESETS")
	for _, m := range registry.ListModels() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m,
			strings.Join(registry.ModelParams(m), ","),
			strings.Join(config.ListPresets(m), ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nschemes: %s\n", strings.Join(registry.ListSchemes(), ", "))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	p, times, err := st.LoadPaths(runID)
	if err != nil {
		return err
	}
	if p == nil || len(times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s  scheme: %s\n", meta.Model, meta.Scheme)
	fmt.Printf("paths: %d  samples: %d\n\n", meta.Paths, len(times))

	q := analysis.Quantiles(p, []float64{0.05, 0.5, 0.95})
	graph := asciigraph.PlotMany(q,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Default, asciigraph.Blue),
		asciigraph.Caption("5% / median / 95% quantiles"),
	)
	fmt.Println(graph)
	fmt.Println()

	fmt.Println(analysis.FanChartToASCII(p, 80, 16))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return writeIndentedJSON(os.Stdout, meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func exportCSV(cmd *cobra.Command, args []string) error {
	p, times, err := storage.New(dataDir).LoadPaths(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, times, p)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	p, times, err := storage.New(dataDir).LoadPaths(runID)
	if err != nil {
		return err
	}

	svg := export.PathsToSVG(times, p, 960, 540, svgPaths)
	if svg == "" {
		return fmt.Errorf("no data to render")
	}

	out := svgOut
	if out == "" {
		out = runID + ".svg"
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	eq, err := registry.GetModel(cfg.Model, cfg.Params)
	if err != nil {
		return err
	}

	// every run below reuses cfg.Seed, so all schemes see the same paths
	var exact []float64
	if ex, ok := eq.(dynamo.ExactSolution); ok {
		b, err := brownian.NewGenerator(cfg.Seed).Paths(cfg.Times(), cfg.Paths)
		if err != nil {
			return err
		}
		exact = make([]float64, cfg.Paths)
		for p := range exact {
			exact[p] = ex.Exact(cfg.Horizon-cfg.T0, cfg.X0, b.At(p, cfg.Steps))
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing schemes for %s (steps=%d, paths=%d, seed=%d)\n\n", cfg.Model, cfg.Steps, cfg.Paths, cfg.Seed)
	fmt.Printf("%-10s  %-12s  %-12s  %-12s  %-12s  %-10s\n", "scheme", "mean", "stddev", "strong_err", "weak_err", "time_ms")
	fmt.Println(strings.Repeat("-", 78))

	for _, name := range args[1:] {
		run := cfg.Clone()
		run.Scheme = name

		exp := experiment.New(run, logger.Default)
		if err := exp.SetupFromRegistry(registry); err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		terminal := result.Terminal()
		mean, std := stat.MeanStdDev(terminal, nil)
		strong, weak := "n/a", "n/a"
		if exact != nil {
			strong = fmt.Sprintf("%.4e", analysis.StrongError(terminal, exact))
			weak = fmt.Sprintf("%.4e", analysis.WeakError(terminal, exact))
		}

		fmt.Printf("%-10s  %12.6f  %12.6f  %12s  %12s  %10.2f\n", name, mean, std, strong, weak, float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func convergence(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	eq, err := registry.GetModel(cfg.Model, cfg.Params)
	if err != nil {
		return err
	}

	factors := make([]int, 0, levels)
	for f := 1; len(factors) < levels && f <= fineSteps; f *= 2 {
		if fineSteps%f == 0 {
			factors = append(factors, f)
		}
	}

	schemes := registry.ListSchemes()
	if cmd.Flags().Changed("scheme") {
		schemes = []string{cfg.Scheme}
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, name := range schemes {
		sch, err := registry.GetScheme(name)
		if err != nil {
			return err
		}

		report, err := analysis.StrongConvergence(ctx, analysis.Study{
			SDE:       eq,
			Scheme:    sch,
			X0:        cfg.X0,
			T0:        cfg.T0,
			Horizon:   cfg.Horizon,
			FineSteps: fineSteps,
			Factors:   factors,
			Paths:     cfg.Paths,
			Seed:      cfg.Seed,
			Workers:   cfg.Workers,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		fmt.Printf("%s (expected strong order %.1f)\n", name, sch.StrongOrder())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  STEPS\tDT\tERROR")
		for _, l := range report.Levels {
			fmt.Fprintf(w, "  %d\t%.3e\t%.4e\n", l.Steps, l.Dt, l.Error)
		}
		w.Flush()
		fmt.Printf("  estimated order: %.3f\n\n", report.Order)
	}

	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), st, stepLogger(cmd))
	for _, r := range results {
		mean, std := stat.MeanStdDev(r.Result.Terminal(), nil)
		line := fmt.Sprintf("%-16s mean=%.6f stddev=%.6f", r.Name, mean, std)
		if r.RunID != "" {
			line += " saved=" + r.RunID
		}
		fmt.Println(line)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:    cfg,
		Param:   sweepParam,
		Min:     sweepMin,
		Max:     sweepMax,
		Count:   sweepCount,
		Workers: cfg.Workers,
	}, experiment.NewRegistry(), logger.Default)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s  %-12s  %-12s\n", sweepParam, "mean", "stddev")
	fmt.Println(strings.Repeat("-", 40))
	means := make([]float64, len(results))
	for i, r := range results {
		fmt.Printf("%12.4f  %12.6f  %12.6f\n", r.Value, r.Mean, r.StdDev)
		means[i] = r.Mean
	}
	if len(means) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(means, asciigraph.Height(8), asciigraph.Caption("terminal mean vs "+sweepParam)))
	}
	return nil
}

func calibrate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	search, err := optim.ParseGrid(grid)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	build := func(p map[string]float64) (*experiment.Experiment, error) {
		run := cfg.Clone()
		for k, v := range p {
			run.Params[k] = v
		}
		exp := experiment.New(run, logger.Discard())
		if err := exp.SetupFromRegistry(registry); err != nil {
			return nil, err
		}
		return exp, nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, score, err := search.Search(ctx, build, optim.TargetMetric(targetMetric, targetValue))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(best))
	for k := range best {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Printf("best fit for %s = %g (distance %.6f):\n", targetMetric, targetValue, score)
	for _, k := range names {
		fmt.Printf("  %s: %g\n", k, best[k])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	// keep log output off the alternate screen
	exp := experiment.New(cfg, logger.Discard())
	if err := exp.SetupFromRegistry(experiment.NewRegistry()); err != nil {
		return err
	}

	m, err := viz.NewModel(cfg.Model, exp.SDE(), func() (*sim.Solver, error) { return exp.Solver() }, livePaths)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}
