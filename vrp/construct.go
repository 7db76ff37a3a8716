package vrp

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/mobius-scheduler/cvrp/common"
	log "github.com/sirupsen/logrus"
)

// some customer cannot be served by any number of trucks
var ErrInfeasibleInstance = errors.New("instance infeasible for capacity")

// greedy builder for a fixed number of trucks:
// customers are shuffled, then each one is appended to the route
// whose length grows least
func BuildRoutes(geo *Geometry, trucks int, rng *rand.Rand) Solution {
	if trucks < 1 {
		panic(fmt.Sprintf("vrp: build routes with %d trucks", trucks))
	}

	routes := make(Solution, trucks)
	for i := range routes {
		routes[i] = Route{Truck: i + 1, Stops: []int{}}
	}

	stops := geo.Coords().Customers()
	rng.Shuffle(len(stops), func(i, j int) { stops[i], stops[j] = stops[j], stops[i] })

	for len(stops) > 0 {
		next := stops[len(stops)-1]
		stops = stops[:len(stops)-1]

		best := 0
		min_length := math.Inf(1)
		for i, r := range routes {
			rl := geo.RouteLength(append(clone(r.Stops), next))
			if rl < min_length {
				min_length = rl
				best = i
			}
		}
		routes[best].Stops = append(routes[best].Stops, next)
	}

	return routes
}

// grow the truck count from 1 until the greedy builder
// returns a solution whose routes are all feasible
func BuildInitialSolution(geo *Geometry, capacity float64, rng *rand.Rand) (Solution, error) {
	customers := geo.Coords().Customers()

	// with one truck per customer the builder always has an empty route
	// available, so every route stays below the longest single round trip
	for _, c := range customers {
		if rt := geo.RouteLength([]int{c}); rt >= capacity {
			return nil, fmt.Errorf(
				"build initial solution: round trip to %d is %0.2f, capacity %v: %w",
				c, rt, capacity, ErrInfeasibleInstance,
			)
		}
	}

	max_trucks := len(customers)
	if max_trucks < 1 {
		max_trucks = 1
	}
	for trucks := 1; trucks <= max_trucks; trucks++ {
		routes := BuildRoutes(geo, trucks, rng)
		if routes.Feasible(geo, capacity) {
			return routes, nil
		}
	}
	return nil, fmt.Errorf("build initial solution: no feasible routes with up to %d trucks: %w", max_trucks, ErrInfeasibleInstance)
}

// constructive heuristic alone, used as a baseline
type GreedySolver struct{}

func (g *GreedySolver) Name() string { return "greedy" }

func (g *GreedySolver) Solve(coords common.CoordMap, capacity float64, seed int64) (Schedule, error) {
	start := time.Now()
	geo, err := NewGeometry(coords)
	if err != nil {
		return Schedule{}, fmt.Errorf("greedy solve: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	sol, err := BuildInitialSolution(geo, capacity, rng)
	if err != nil {
		return Schedule{}, fmt.Errorf("greedy solve: %w", err)
	}
	log.Debugf("[vrp] greedy solution with %d trucks, score %0.2f", len(sol), geo.Score(sol))

	s := NewSchedule(sol, geo)
	s.Stats.Solver = g.Name()
	s.Stats.Seed = seed
	s.Stats.Capacity = capacity
	s.Stats.InitialScore = s.Score
	s.Stats.ElapsedSeconds = time.Since(start).Seconds()
	return s, nil
}
