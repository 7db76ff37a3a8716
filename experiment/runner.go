// Package experiment sweeps solvers over instances and seeds and
// aggregates the scores.
package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/instance"
	"github.com/mobius-scheduler/cvrp/metrics"
	"github.com/mobius-scheduler/cvrp/vns"
	"github.com/mobius-scheduler/cvrp/vrp"
	log "github.com/sirupsen/logrus"
)

// solver for a configured label: "greedy" or an operator preset
func NewSolver(name string, cfg Config) (vrp.Solver, error) {
	if name == Greedy {
		return &vrp.GreedySolver{}, nil
	}
	ops, err := vrp.ParseOperatorSet(name)
	if err != nil {
		return nil, err
	}
	opts := vns.DefaultOptions()
	opts.KMax = cfg.KMax
	opts.Operators = ops
	opts.ChainShake = cfg.ChainShake
	opts.Verbosity = cfg.Verbosity
	opts.Recorder = metrics.NewRecorder(ops.String())
	return vns.NewSolver(opts), nil
}

type Runner struct {
	Config Config
	Sink   Sink

	// experiment id shared by every run; a fresh uuid when empty
	ID string
}

func NewRunner(cfg Config, sink Sink) *Runner {
	return &Runner{Config: cfg, Sink: sink, ID: uuid.NewString()}
}

// Run solves every instance with every solver for seeds
// FirstSeed..FirstSeed+Samples-1 and returns one summary per
// (instance, solver) pair, in configuration order.
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	paths, err := r.Config.InstancePaths()
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	log.Infof("[experiment] experiment %s: %d instances, solvers %v", r.ID, len(paths), r.Config.Solvers)

	var summaries []Summary
	for _, path := range paths {
		inst, err := instance.ParseFile(path)
		if err != nil {
			return summaries, fmt.Errorf("experiment: %w", err)
		}
		for _, name := range r.Config.Solvers {
			solver, err := NewSolver(name, r.Config)
			if err != nil {
				return summaries, fmt.Errorf("experiment: %w", err)
			}
			s, err := r.sweep(ctx, filepath.Base(path), inst, solver)
			if err != nil {
				return summaries, err
			}
			summaries = append(summaries, s)
		}
	}
	return summaries, nil
}

// run one solver over every seed on one instance, labelled by its file name
func (r *Runner) sweep(ctx context.Context, name string, inst *instance.Instance, solver vrp.Solver) (Summary, error) {
	scores := make([]float64, 0, r.Config.Samples)
	var best vrp.Schedule

	for i := 0; i < r.Config.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return Summary{}, fmt.Errorf("experiment: %w", err)
		}
		seed := r.Config.FirstSeed + int64(i)
		log.Debugf("[experiment] %s on %s, seed %d", solver.Name(), name, seed)

		start := time.Now()
		sched, err := solver.Solve(inst.Coords, r.Config.Capacity, seed)
		elapsed := time.Since(start).Seconds()
		metrics.ObserveRun(name, solver.Name(), elapsed, sched.Score, err)
		if err != nil {
			return Summary{}, fmt.Errorf("experiment: %s on %s, seed %d: %w", solver.Name(), name, seed, err)
		}

		run := Run{
			ID:             uuid.NewString(),
			ExperimentID:   r.ID,
			Instance:       name,
			Solver:         solver.Name(),
			Seed:           seed,
			Capacity:       r.Config.Capacity,
			Score:          sched.Score,
			InitialScore:   sched.Stats.InitialScore,
			Trucks:         sched.Trucks,
			Iterations:     sched.Stats.Iterations,
			Improvements:   sched.Stats.Improvements,
			ElapsedSeconds: elapsed,
			Routes:         sched.Routes,
			CreatedAt:      time.Now().UTC(),
		}
		if r.Sink != nil {
			if err := r.Sink.RecordRun(ctx, run); err != nil {
				return Summary{}, fmt.Errorf("experiment: %w", err)
			}
		}

		if len(scores) == 0 || sched.Score < best.Score {
			best = sched
		}
		scores = append(scores, sched.Score)
	}

	lo, hi := common.GetMinMax(scores)
	log.Debugf("[experiment] %s on %s: scores in [%0.2f, %0.2f]", solver.Name(), name, lo, hi)

	s := Summarize(scores)
	s.ExperimentID = r.ID
	s.Instance = name
	s.Solver = solver.Name()
	log.Infof("[experiment] %s on %s: mean %0.2f, median %0.2f, best %0.2f", s.Solver, s.Instance, s.Mean, s.Median, s.Best)

	if r.Sink != nil {
		if err := r.Sink.RecordSummary(ctx, s); err != nil {
			return s, fmt.Errorf("experiment: %w", err)
		}
	}
	if r.Config.SolutionsDir != "" {
		if err := writeSchedule(r.Config.SolutionsDir, s.Instance, s.Solver, best); err != nil {
			return s, fmt.Errorf("experiment: %w", err)
		}
	}
	return s, nil
}

// best schedule of a sweep as <dir>/<instance>.<solver>.json
func writeSchedule(dir, inst, solver string, sched vrp.Schedule) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.json", inst, solver))
	return os.WriteFile(path, common.ToJSON(sched), 0o644)
}
