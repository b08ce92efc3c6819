package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/mdokit/internal/config"
	"github.com/san-kum/mdokit/internal/fd"
	"github.com/san-kum/mdokit/internal/problem"
	"github.com/san-kum/mdokit/internal/solver"
	"github.com/san-kum/mdokit/internal/storage"
	"github.com/san-kum/mdokit/internal/tui"
	"github.com/san-kum/mdokit/internal/viz"
)

var (
	dataDir    string
	tolerance  float64
	maxIter    int
	relResid   bool
	fdScheme   string
	fdStep     float64
	fdRelative bool
	setFlags   []string
	configFile string
	preset     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mdokit",
		Short: "multidisciplinary model evaluation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdokit", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "evaluate a problem at a design point",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	addEvalFlags(solveCmd)

	gradCmd := &cobra.Command{
		Use:   "grad [problem]",
		Short: "finite-difference jacobian at a design point",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrad,
	}
	addEvalFlags(gradCmd)

	checkCmd := &cobra.Command{
		Use:   "check [problem]",
		Short: "assemble a problem and report its evaluation order",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	addEvalFlags(checkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's residual history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id] [path]",
		Short: "export run metadata to JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			return st.ExportJSON(args[0], args[1])
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [problem]",
		Short: "evaluate with a live solver monitor",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addEvalFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list built-in problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range problem.NewRegistry().Names() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(solveCmd, gradCmd, checkCmd, listCmd, plotCmd, exportCmd, liveCmd, presetsCmd, problemsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEvalFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "coupling solver tolerance")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "coupling solver iteration cap")
	cmd.Flags().BoolVar(&relResid, "rel-residual", false, "use relative residuals")
	cmd.Flags().StringVar(&fdScheme, "fd-scheme", config.DefaultFDScheme, "finite-difference scheme (forward|central)")
	cmd.Flags().Float64Var(&fdStep, "fd-step", config.DefaultFDStep, "finite-difference step")
	cmd.Flags().BoolVar(&fdRelative, "fd-relative", false, "scale fd step by design value")
	cmd.Flags().StringArrayVar(&setFlags, "set", nil, "design override name=value (repeatable)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// loadSetup merges preset, config file, and flags (flags win) into the
// problem plus its design point, mirroring run configuration precedence.
func loadSetup(cmd *cobra.Command, name string) (*problem.Problem, []float64, *config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Problem = name

	if preset != "" {
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, nil, nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		*cfg = *p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *loaded
		cfg.Problem = name
	}

	if cmd.Flags().Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIter
	}
	if cmd.Flags().Changed("rel-residual") {
		cfg.Solver.Relative = relResid
	}
	if cmd.Flags().Changed("fd-scheme") {
		cfg.FD.Scheme = fdScheme
	}
	if cmd.Flags().Changed("fd-step") {
		cfg.FD.Step = fdStep
	}
	if cmd.Flags().Changed("fd-relative") {
		cfg.FD.Relative = fdRelative
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	scheme, err := fd.ParseScheme(cfg.FD.Scheme)
	if err != nil {
		return nil, nil, nil, err
	}

	params := problem.Params{
		Solver: solver.Options{
			Tolerance:     cfg.Solver.Tolerance,
			MaxIterations: cfg.Solver.MaxIterations,
			Relative:      cfg.Solver.Relative,
		},
		FD: fd.Options{
			Scheme:   scheme,
			Step:     cfg.FD.Step,
			Relative: cfg.FD.Relative,
		},
	}

	prob, err := problem.NewRegistry().Get(name, params)
	if err != nil {
		return nil, nil, nil, err
	}

	point, err := designPoint(prob, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return prob, point, cfg, nil
}

func designPoint(prob *problem.Problem, cfg *config.Config) ([]float64, error) {
	overrides := make(map[string]float64)
	for k, v := range cfg.Design {
		overrides[k] = v
	}
	for _, s := range setFlags {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad --set %q, want name=value", s)
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad --set %q: %w", s, err)
		}
		overrides[parts[0]] = v
	}

	names := prob.DesignNames()
	point := prob.InitialPoint()
	for k, v := range overrides {
		found := false
		for i, n := range names {
			if n == k {
				point[i] = v
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown design variable %q (have %v)", k, names)
		}
	}
	return point, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	prob, point, cfg, err := loadSetup(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	store, records, err := prob.Evaluate(context.Background(), point)
	if err != nil {
		return err
	}

	names := prob.DesignNames()
	fmt.Println(viz.ValueTable("design", store, names))
	fmt.Println(viz.ValueTable("responses", store, prob.Responses()))

	for _, rec := range records {
		fmt.Printf("group %s: converged=%v iterations=%d residual=%.3e\n",
			rec.Group, rec.Converged, rec.Iterations, rec.Residual)
		fmt.Println(viz.ResidualPlot(rec.History, rec.Group))
	}

	design := make(map[string]float64, len(names))
	for i, n := range names {
		design[n] = point[i]
	}
	responses := make(map[string]float64)
	for _, r := range prob.Responses() {
		responses[r] = store.Float(r)
	}

	runID, err := st.Save(cfg.Problem, design, responses, records)
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", runID)
	return nil
}

func runGrad(cmd *cobra.Command, args []string) error {
	prob, point, _, err := loadSetup(cmd, args[0])
	if err != nil {
		return err
	}

	jac, err := prob.Gradient(context.Background(), point)
	if jac == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	fmt.Println(viz.JacobianTable(jac))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	prob, _, _, err := loadSetup(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("problem %s assembled\n", prob.Name())
	fmt.Println("evaluation order:")
	groups := make(map[string]bool)
	for _, g := range prob.Model().Groups() {
		groups[g] = true
	}
	for i, n := range prob.Model().Order() {
		kind := "unit"
		if groups[n] {
			kind = "coupling group"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, n, kind)
	}

	lower, upper := prob.Bounds()
	fmt.Println("design variables:")
	for i, n := range prob.DesignNames() {
		fmt.Printf("  %s in [%g, %g]\n", n, lower[i], upper[i])
	}
	fmt.Printf("objective: %s\n", prob.Objective())
	for _, c := range prob.ConstraintSpecs() {
		fmt.Printf("constraint: %s %s %g\n", c.Name, c.Sense, c.Bound)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	prob, point, _, err := loadSetup(cmd, args[0])
	if err != nil {
		return err
	}
	return tui.Run(prob, point)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tRESPONSES")
	for _, r := range runs {
		var parts []string
		for k, v := range r.Responses {
			parts = append(parts, fmt.Sprintf("%s=%.4f", k, v))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.ID, r.Problem, r.Timestamp.Format("2006-01-02 15:04:05"), strings.Join(parts, " "))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	history, err := st.History(args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no residual history (uncoupled model)")
		return nil
	}
	for group, res := range history {
		fmt.Println(viz.ResidualPlot(res, group))
		fmt.Println()
	}
	return nil
}
