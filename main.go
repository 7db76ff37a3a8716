package main

import (
	"context"
	"math"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/experiment"
	"github.com/mobius-scheduler/cvrp/instance"
	"github.com/mobius-scheduler/cvrp/metrics"
	"github.com/mobius-scheduler/cvrp/vns"
	"github.com/mobius-scheduler/cvrp/vrp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Config struct {
	Verbose     int    `json:"verbose"`
	MetricsFile string `json:"metrics_file"`
}

type SolveConfig struct {
	Instance   string  `json:"instance"`
	Solver     string  `json:"solver"`
	KMax       int     `json:"k_max"`
	Capacity   float64 `json:"capacity"`
	Seed       int64   `json:"seed"`
	ChainShake bool    `json:"chain_shake"`
	Out        string  `json:"out"`
}

var cfg Config

// write metrics textfile if requested
func dump_metrics() {
	if cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Errorf("[main] error writing metrics to %s: %v", cfg.MetricsFile, err)
	}
}

// build solver for a single instance
func create_solver(sc SolveConfig) vrp.Solver {
	if sc.Solver == experiment.Greedy {
		return &vrp.GreedySolver{}
	}
	ops, err := vrp.ParseOperatorSet(sc.Solver)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	opts := vns.DefaultOptions()
	opts.KMax = sc.KMax
	opts.Operators = ops
	opts.Verbosity = cfg.Verbose
	opts.ChainShake = sc.ChainShake
	opts.Recorder = metrics.NewRecorder(ops.String())
	return vns.NewSolver(opts)
}

func solve(sc SolveConfig) {
	inst, err := instance.ParseFile(sc.Instance)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	log.Printf("[main] instance %s: %d customers", inst.Name, inst.Customers())

	solver := create_solver(sc)
	s, err := solver.Solve(inst.Coords, sc.Capacity, sc.Seed)
	metrics.ObserveRun(inst.Name, solver.Name(), s.Stats.ElapsedSeconds, s.Score, err)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	if err := s.Solution().Validate(inst.Coords); err != nil {
		log.Fatalf("[main] %v", err)
	}
	log.Printf("[main] %s: %v (%d trucks used)", solver.Name(), s, s.Solution().Used())

	if sc.Out != "" {
		common.ToFile(sc.Out, s)
	}
}

// open the sinks enabled by the config and environment
func create_sinks(ctx context.Context, ec experiment.Config) experiment.MultiSink {
	var sinks experiment.MultiSink
	if ec.Results != "" {
		sinks = append(sinks, experiment.NewCSVSink(ec.Results))
	}
	if ec.DatabaseURL != "" {
		pg, err := experiment.NewPostgresSink(ctx, ec.DatabaseURL)
		if err != nil {
			log.Fatalf("[main] %v", err)
		}
		sinks = append(sinks, pg)
	}
	if ec.RedisURL != "" {
		rs, err := experiment.NewRedisSink(ec.RedisURL)
		if err != nil {
			log.Fatalf("[main] %v", err)
		}
		sinks = append(sinks, rs)
	}
	return sinks
}

func run_experiment(ec experiment.Config) {
	ec.ApplyEnv()
	ec.Verbosity = cfg.Verbose
	if err := ec.Validate(); err != nil {
		log.Fatalf("[main] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sinks := create_sinks(ctx, ec)
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Errorf("[main] error closing sinks: %v", err)
		}
	}()

	runner := experiment.NewRunner(ec, sinks)
	summaries, err := runner.Run(ctx)
	if err != nil {
		log.Errorf("[main] experiment %s stopped: %v", runner.ID, err)
		return
	}
	log.Printf("[main] experiment %s: %d summaries", runner.ID, len(summaries))
}

// re-check a saved schedule against its instance
func check(instance_path, schedule_path string, capacity float64) {
	inst, err := instance.ParseFile(instance_path)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	var s vrp.Schedule
	common.FromFile(schedule_path, &s)

	sol := s.Solution()
	if err := sol.Validate(inst.Coords); err != nil {
		log.Fatalf("[main] %v", err)
	}
	for _, r := range sol {
		if !vrp.ValidateRoute(r.Stops, capacity, inst.Coords) {
			log.Fatalf("[main] truck %d: route length %0.2f exceeds capacity %v", r.Truck, vrp.RouteLength(r.Stops, inst.Coords), capacity)
		}
	}
	score := vrp.SolutionScore(sol, inst.Coords)
	if math.Abs(score-s.Score) > 1e-6 {
		log.Warnf("[main] schedule reports score %v, recomputed %v", s.Score, score)
	}
	log.Printf("[main] schedule ok: %d trucks, score %v", sol.Used(), score)
}

func solve_cmd() *cobra.Command {
	sc := SolveConfig{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "run one solver on one Augerat instance",
		Run: func(cmd *cobra.Command, args []string) {
			solve(sc)
		},
	}
	def := vns.DefaultOptions()
	cmd.Flags().StringVar(
		&sc.Instance,
		"instance",
		"",
		"path to instance (.vrp) file",
	)
	cmd.Flags().StringVar(
		&sc.Solver,
		"solver",
		string(def.Operators),
		"solver (small, mid, big, greedy)",
	)
	cmd.Flags().IntVar(
		&sc.KMax,
		"kmax",
		def.KMax,
		"consecutive non-improving iterations before stopping",
	)
	cmd.Flags().Float64Var(
		&sc.Capacity,
		"capacity",
		def.Capacity,
		"maximum route length",
	)
	cmd.Flags().Int64Var(
		&sc.Seed,
		"seed",
		0,
		"random seed",
	)
	cmd.Flags().BoolVar(
		&sc.ChainShake,
		"chain-shake",
		false,
		"feed each shake round the previous round's output",
	)
	cmd.Flags().StringVar(
		&sc.Out,
		"out",
		"",
		"path to write schedule (.json)",
	)
	cmd.MarkFlagRequired("instance")
	return cmd
}

func experiment_cmd() *cobra.Command {
	ec := experiment.DefaultConfig()
	var cfg_path string
	cmd := &cobra.Command{
		Use:   "experiment [instance ...]",
		Short: "sweep solvers over instances and seeds",
		Run: func(cmd *cobra.Command, args []string) {
			if cfg_path != "" {
				loaded, err := experiment.LoadConfig(cfg_path)
				if err != nil {
					log.Fatalf("[main] %v", err)
				}
				// flags set on the command line win over the file
				flags := cmd.Flags()
				if flags.Changed("solver") {
					loaded.Solvers = ec.Solvers
				}
				if flags.Changed("kmax") {
					loaded.KMax = ec.KMax
				}
				if flags.Changed("capacity") {
					loaded.Capacity = ec.Capacity
				}
				if flags.Changed("samples") {
					loaded.Samples = ec.Samples
				}
				if flags.Changed("results") {
					loaded.Results = ec.Results
				}
				if flags.Changed("dir") {
					loaded.InstancesDir = ec.InstancesDir
				}
				ec = loaded
			}
			ec.Instances = append(ec.Instances, args...)
			run_experiment(ec)
		},
	}
	cmd.Flags().StringVar(
		&cfg_path,
		"config",
		"",
		"path to experiment config (.yaml) file",
	)
	cmd.Flags().StringSliceVar(
		&ec.Solvers,
		"solver",
		ec.Solvers,
		"solvers to compare (small, mid, big, greedy)",
	)
	cmd.Flags().StringVar(
		&ec.InstancesDir,
		"dir",
		"",
		"directory of instance files",
	)
	cmd.Flags().IntVar(
		&ec.KMax,
		"kmax",
		ec.KMax,
		"consecutive non-improving iterations before stopping",
	)
	cmd.Flags().Float64Var(
		&ec.Capacity,
		"capacity",
		ec.Capacity,
		"maximum route length",
	)
	cmd.Flags().IntVar(
		&ec.Samples,
		"samples",
		ec.Samples,
		"number of seeds per instance and solver",
	)
	cmd.Flags().StringVar(
		&ec.Results,
		"results",
		ec.Results,
		"results file (rows are appended)",
	)
	return cmd
}

func check_cmd() *cobra.Command {
	var capacity float64
	cmd := &cobra.Command{
		Use:   "check <instance> <schedule>",
		Short: "validate a saved schedule against its instance",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			check(args[0], args[1], capacity)
		},
	}
	cmd.Flags().Float64Var(
		&capacity,
		"capacity",
		vns.DefaultOptions().Capacity,
		"maximum route length",
	)
	return cmd
}

func join_cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <dir> <out>",
		Short: "concatenate every results file of a directory",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := experiment.Join(args[0], args[1]); err != nil {
				log.Fatalf("[main] %v", err)
			}
		},
	}
}

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("[main] error loading .env: %v", err)
	}

	root := &cobra.Command{
		Use:   "cvrp",
		Short: "variable neighborhood search for the capacitated VRP",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(vns.LevelFor(cfg.Verbose))
			metrics.RegisterDefault()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			dump_metrics()
		},
	}
	root.PersistentFlags().IntVarP(
		&cfg.Verbose,
		"verbose",
		"v",
		0,
		"verbosity (0 = result, 1 = improvements, 2 = every iteration)",
	)
	root.PersistentFlags().StringVar(
		&cfg.MetricsFile,
		"metrics-file",
		"",
		"path to write prometheus metrics (textfile format)",
	)
	root.AddCommand(solve_cmd(), experiment_cmd(), check_cmd(), join_cmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
