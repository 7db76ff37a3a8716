package vns

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/instance"
	"github.com/mobius-scheduler/cvrp/vrp"
)

// counters collected over one run
type Stats struct {
	Iterations    int            `json:"iterations"`
	Improvements  int            `json:"improvements"`
	Moves         map[string]int `json:"moves"`
	ShakeFailures int            `json:"shake_failures"`
	Elapsed       time.Duration  `json:"elapsed"`
}

func newStats() *Stats {
	return &Stats{Moves: make(map[string]int)}
}

// Result of one VNS run.
type Result struct {
	Score        float64
	Solution     vrp.Solution
	Trucks       int
	InitialScore float64
	Stats        Stats

	geo  *vrp.Geometry
	opts Options
}

// schedule view of the result, with per-route lengths
func (r Result) Schedule() vrp.Schedule {
	s := vrp.NewSchedule(r.Solution, r.geo)
	s.Stats.Solver = "vns_" + r.opts.Operators.String()
	s.Stats.Seed = r.opts.Seed
	s.Stats.Capacity = r.opts.Capacity
	s.Stats.InitialScore = r.InitialScore
	s.Stats.Iterations = r.Stats.Iterations
	s.Stats.Improvements = r.Stats.Improvements
	s.Stats.ElapsedSeconds = r.Stats.Elapsed.Seconds()
	return s
}

// Run builds an initial solution and improves it with shake and VND
// while k < KMax. An improvement resets k to 1, anything else
// increments it. A candidate replaces the incumbent only when it is
// feasible and strictly shorter, so the score never gets worse.
func Run(coords common.CoordMap, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, fmt.Errorf("vns: %w", err)
	}
	opts = opts.withDefaults()
	start := time.Now()

	geo, err := vrp.NewGeometry(coords)
	if err != nil {
		return Result{}, fmt.Errorf("vns: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	routes, err := vrp.BuildInitialSolution(geo, opts.Capacity, rng)
	if err != nil {
		return Result{}, fmt.Errorf("vns: %w", err)
	}

	search := NewSearch(geo, opts, rng)
	logger := search.log.WithField("preset", opts.Operators)
	logger.Infof("[vns] starting with %d trucks", len(routes))

	score := geo.Score(routes)
	initial := score
	k := 1
	for k < opts.KMax {
		search.stats.Iterations++

		candidate := search.Shake(routes, k)
		logger.Tracef("[vns] shake score: %v for k: %d", geo.Score(candidate), k)

		candidate = search.VND(candidate)
		new_score := geo.Score(candidate)
		logger.Tracef("[vns] VND score: %v", new_score)

		improved := new_score < score && candidate.Feasible(geo, opts.Capacity)
		search.Recorder.Iteration(k, improved)
		if improved {
			logger.Debugf("[vns] the score has improved by %v", score-new_score)
			logger.Debugf("[vns] current score: %v", new_score)
			routes = candidate
			score = geo.Score(routes)
			search.stats.Improvements++
			k = 1
		} else {
			k++
		}
	}

	for _, r := range routes {
		logger.Debugf("[vns] route %d with score %v", r.Truck, geo.RouteLength(r.Stops))
	}
	logger.Infof("[vns] best score: %v", score)

	search.stats.Elapsed = time.Since(start)
	return Result{
		Score:        score,
		Solution:     routes,
		Trucks:       len(routes),
		InitialScore: initial,
		Stats:        *search.stats,
		geo:          geo,
		opts:         opts,
	}, nil
}

// RunFile parses an Augerat instance and runs VNS on it.
func RunFile(path string, opts Options) (Result, error) {
	inst, err := instance.ParseFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("vns: %w", err)
	}
	return Run(inst.Coords, opts)
}

// Solver adapts the VNS controller to vrp.Solver.
type Solver struct {
	Options Options
}

func NewSolver(opts Options) *Solver {
	return &Solver{Options: opts}
}

func (s *Solver) Name() string {
	return "vns_" + s.Options.Operators.String()
}

func (s *Solver) Solve(coords common.CoordMap, capacity float64, seed int64) (vrp.Schedule, error) {
	opts := s.Options
	opts.Capacity = capacity
	opts.Seed = seed
	res, err := Run(coords, opts)
	if err != nil {
		return vrp.Schedule{}, err
	}
	return res.Schedule(), nil
}
