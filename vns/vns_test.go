package vns

import (
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/vrp"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var optimum = 30 + 2*math.Sqrt(50)

func square() common.CoordMap {
	return common.CoordMap{
		1: {X: 0, Y: 0},
		2: {X: 10, Y: 0},
		3: {X: 10, Y: 10},
		4: {X: 0, Y: 10},
		5: {X: 5, Y: 5},
	}
}

// n customers scattered around a central depot
func scattered(n int) common.CoordMap {
	coords := common.CoordMap{common.Depot: {X: 20, Y: 20}}
	for i := 0; i < n; i++ {
		coords[i+2] = common.Location{X: (i * 17) % 41, Y: (i * 29) % 37}
	}
	return coords
}

func quiet() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions(ops vrp.OperatorSet, capacity float64) Options {
	opts := DefaultOptions()
	opts.Operators = ops
	opts.Capacity = capacity
	opts.KMax = 5
	opts.Logger = quiet()
	return opts
}

func newTestSearch(t *testing.T, coords common.CoordMap, opts Options, seed int64) *Search {
	t.Helper()
	geo, err := vrp.NewGeometry(coords)
	require.NoError(t, err)
	return NewSearch(geo, opts, rand.New(rand.NewSource(seed)))
}

type countingRecorder struct {
	iterations, improved, moves int
	shakes                      map[string]int
}

func (c *countingRecorder) Iteration(k int, improved bool) {
	c.iterations++
	if improved {
		c.improved++
	}
}

func (c *countingRecorder) Move(string) { c.moves++ }

func (c *countingRecorder) Shake(nb string, ok bool) {
	if c.shakes == nil {
		c.shakes = map[string]int{}
	}
	c.shakes[nb]++
}

func TestRunSquare(t *testing.T) {
	for _, ops := range vrp.OperatorSets {
		for seed := int64(0); seed < 5; seed++ {
			opts := testOptions(ops, 100)
			opts.Seed = seed

			res, err := Run(square(), opts)
			require.NoError(t, err)
			assert.InDelta(t, optimum, res.Score, 1e-9, "preset %s seed %d", ops, seed)
			assert.Equal(t, 1, res.Trucks)
			assert.NoError(t, res.Solution.Validate(square()))
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	opts := testOptions(vrp.Big, 130)
	opts.Seed = 11
	opts.KMax = 8

	a, err := Run(scattered(15), opts)
	require.NoError(t, err)
	b, err := Run(scattered(15), opts)
	require.NoError(t, err)

	assert.Equal(t, a.Solution, b.Solution)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Stats.Iterations, b.Stats.Iterations)
}

func TestRunNeverWorse(t *testing.T) {
	for _, ops := range vrp.OperatorSets {
		opts := testOptions(ops, 130)
		opts.Seed = 3
		opts.KMax = 6

		res, err := Run(scattered(14), opts)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Score, res.InitialScore)
		assert.NoError(t, res.Solution.Validate(scattered(14)))

		geo, err := vrp.NewGeometry(scattered(14))
		require.NoError(t, err)
		assert.True(t, res.Solution.Feasible(geo, 130))
		assert.InDelta(t, geo.Score(res.Solution), res.Score, 1e-9)
	}
}

func TestRunKMaxOne(t *testing.T) {
	opts := testOptions(vrp.Small, 130)
	opts.KMax = 1

	res, err := Run(scattered(8), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Iterations)
	assert.Equal(t, res.InitialScore, res.Score)
}

func TestRunErrors(t *testing.T) {
	opts := testOptions(vrp.Big, 100)
	opts.KMax = 0
	_, err := Run(square(), opts)
	assert.Error(t, err)

	opts = testOptions(vrp.Big, 15)
	_, err = Run(square(), opts)
	assert.ErrorIs(t, err, vrp.ErrInfeasibleInstance)

	opts = testOptions(vrp.Big, 100)
	_, err = Run(common.CoordMap{2: {X: 1, Y: 1}}, opts)
	assert.Error(t, err)
}

func TestRunRecorder(t *testing.T) {
	rec := &countingRecorder{}
	opts := testOptions(vrp.Mid, 130)
	opts.Recorder = rec
	opts.KMax = 6

	res, err := Run(scattered(12), opts)
	require.NoError(t, err)
	assert.Equal(t, res.Stats.Iterations, rec.iterations)
	assert.Equal(t, res.Stats.Improvements, rec.improved)

	var moves int
	for _, n := range res.Stats.Moves {
		moves += n
	}
	assert.Equal(t, moves, rec.moves)
	assert.NotEmpty(t, rec.shakes)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.vrp")
	data := "NAME : square\nTYPE : CVRP\nNODE_COORD_SECTION\n1 0 0\n2 10 0\n3 10 10\n4 0 10\n5 5 5\nDEMAND_SECTION\n1 0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	res, err := RunFile(path, testOptions(vrp.Big, 100))
	require.NoError(t, err)
	assert.InDelta(t, optimum, res.Score, 1e-9)

	_, err = RunFile(filepath.Join(t.TempDir(), "missing.vrp"), testOptions(vrp.Big, 100))
	assert.Error(t, err)
}

func TestResultSchedule(t *testing.T) {
	opts := testOptions(vrp.Small, 100)
	opts.Seed = 2

	res, err := Run(square(), opts)
	require.NoError(t, err)

	s := res.Schedule()
	assert.Equal(t, "vns_small", s.Stats.Solver)
	assert.Equal(t, int64(2), s.Stats.Seed)
	assert.Equal(t, res.Score, s.Score)
	assert.Equal(t, res.InitialScore, s.Stats.InitialScore)
	assert.Equal(t, res.Solution, s.Solution())
}

func TestSolver(t *testing.T) {
	var solver vrp.Solver = NewSolver(testOptions(vrp.Big, 1))
	assert.Equal(t, "vns_big", solver.Name())

	// capacity and seed come from the call
	s, err := solver.Solve(square(), 100, 9)
	require.NoError(t, err)
	assert.InDelta(t, optimum, s.Score, 1e-9)
	assert.Equal(t, int64(9), s.Stats.Seed)
	assert.Equal(t, 100.0, s.Stats.Capacity)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := []func(o *Options){
		func(o *Options) { o.KMax = 0 },
		func(o *Options) { o.Capacity = 0 },
		func(o *Options) { o.Operators = "huge" },
		func(o *Options) { o.Verbosity = 3 },
		func(o *Options) { o.MaxAttempts = -1 },
	}
	for i, mutate := range bad {
		o := DefaultOptions()
		mutate(&o)
		assert.Error(t, o.Validate(), "case %d", i)
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, log.InfoLevel, LevelFor(0))
	assert.Equal(t, log.DebugLevel, LevelFor(1))
	assert.Equal(t, log.TraceLevel, LevelFor(2))
}
