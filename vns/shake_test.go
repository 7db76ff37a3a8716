package vns

import (
	"testing"

	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/vrp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMC2SingleRoute(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		s := newTestSearch(t, square(), testOptions(vrp.Big, 100), seed)
		sol := vrp.Solution{{Truck: 1, Stops: []int{2, 3, 5, 4}}}

		out, err := s.MC2(sol)
		require.NoError(t, err)
		assert.NoError(t, out.Validate(square()))
		assert.Equal(t, []int{2, 3, 5, 4}, sol[0].Stops)
	}
}

func TestMC2NoApplicableMovement(t *testing.T) {
	coords := common.CoordMap{1: {X: 0, Y: 0}, 2: {X: 1, Y: 1}}
	s := newTestSearch(t, coords, testOptions(vrp.Big, 100), 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2}}}

	out, err := s.MC2(sol)
	assert.ErrorIs(t, err, ErrNoFeasibleMove)
	assert.Equal(t, sol, out)
}

func TestMC2Exhausted(t *testing.T) {
	// swapping the two customers is feasible, shifting one onto
	// the other truck never is, so the second move cannot be found
	coords := common.CoordMap{1: {X: 0, Y: 0}, 2: {X: 10, Y: 0}, 3: {X: 0, Y: 10}}
	opts := testOptions(vrp.Big, 25)
	opts.MaxMoveAttempts = 20
	s := newTestSearch(t, coords, opts, 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2}}, {Truck: 2, Stops: []int{3}}}

	out, err := s.MC2(sol)
	assert.ErrorIs(t, err, ErrNoFeasibleMove)
	assert.Equal(t, sol, out)
}

func TestMC2Feasible(t *testing.T) {
	coords := scattered(12)
	for seed := int64(0); seed < 10; seed++ {
		s := newTestSearch(t, coords, testOptions(vrp.Big, 1000), seed)
		sol := vrp.BuildRoutes(s.Geo, 4, s.Rng)
		if !sol.Feasible(s.Geo, 1000) {
			continue
		}

		out, err := s.MC2(sol)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoFeasibleMove)
			assert.Equal(t, sol, out)
			continue
		}
		assert.True(t, out.Feasible(s.Geo, 1000))
		assert.NoError(t, out.Validate(coords))
	}
}

func TestSequenceShakeSwapsWholeRoutes(t *testing.T) {
	s := newTestSearch(t, square(), testOptions(vrp.Big, 100), 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2, 3}}, {Truck: 2, Stops: []int{4, 5}}}

	// windows of two on routes of two must cover both routes
	out, err := s.SE2(sol)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, out[0].Stops)
	assert.Equal(t, []int{2, 3}, out[1].Stops)
	assert.Equal(t, []int{2, 3}, sol[0].Stops)
}

func TestSequenceShakeTooShort(t *testing.T) {
	s := newTestSearch(t, square(), testOptions(vrp.Big, 100), 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2, 3, 4}}, {Truck: 2, Stops: []int{5}}}

	out, err := s.SE2(sol)
	assert.ErrorIs(t, err, ErrNoFeasibleMove)
	assert.Equal(t, sol, out)

	_, err = s.SE3(vrp.Solution{{Truck: 1, Stops: []int{2, 3}}, {Truck: 2, Stops: []int{4, 5}}})
	assert.ErrorIs(t, err, ErrNoFeasibleMove)
}

func TestSequenceShakeExhausted(t *testing.T) {
	opts := testOptions(vrp.Big, 1)
	opts.MaxAttempts = 5
	s := newTestSearch(t, square(), opts, 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2, 3}}, {Truck: 2, Stops: []int{4, 5}}}

	out, err := s.SE2(sol)
	assert.ErrorIs(t, err, ErrNoFeasibleMove)
	assert.Equal(t, sol, out)

	out[0].Stops[0] = 9
	assert.Equal(t, 2, sol[0].Stops[0], "the returned copy must be independent")
}

func TestSequenceShakeFeasible(t *testing.T) {
	coords := scattered(15)
	for seed := int64(0); seed < 10; seed++ {
		s := newTestSearch(t, coords, testOptions(vrp.Big, 1000), seed)
		sol := vrp.BuildRoutes(s.Geo, 3, s.Rng)
		if len(routesWith(sol, 3)) < 2 {
			continue
		}

		out, err := s.SE3(sol)
		require.NoError(t, err)
		assert.True(t, out.Feasible(s.Geo, 1000))
		assert.NoError(t, out.Validate(coords))
		for i := range sol {
			assert.Len(t, out[i].Stops, len(sol[i].Stops), "sequence exchange keeps route sizes")
		}
	}
}

func TestShakePreservesPartition(t *testing.T) {
	coords := scattered(15)
	for _, chain := range []bool{false, true} {
		for seed := int64(0); seed < 5; seed++ {
			opts := testOptions(vrp.Big, 1000)
			opts.ChainShake = chain
			s := newTestSearch(t, coords, opts, seed)
			sol := vrp.BuildRoutes(s.Geo, 3, s.Rng)

			for k := 1; k <= 4; k++ {
				out := s.Shake(sol, k)
				assert.NoError(t, out.Validate(coords))
				assert.True(t, out.Feasible(s.Geo, 1000))
			}
		}
	}
}

func TestShakeFailuresKeepInput(t *testing.T) {
	opts := testOptions(vrp.Big, 1)
	opts.MaxAttempts = 3
	opts.MaxMoveAttempts = 3
	rec := &countingRecorder{}
	opts.Recorder = rec
	s := newTestSearch(t, square(), opts, 0)
	sol := vrp.Solution{{Truck: 1, Stops: []int{2, 3}}, {Truck: 2, Stops: []int{4, 5}}}

	out := s.Shake(sol, 3)
	assert.Equal(t, sol, out)
	assert.GreaterOrEqual(t, s.stats.ShakeFailures, 3)
	assert.NotEmpty(t, rec.shakes)
}
