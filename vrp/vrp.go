package vrp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mobius-scheduler/cvrp/common"
)

// schema for route of a single truck
// the depot is implicit at both ends and never stored in Stops
type Route struct {
	Truck int   `json:"truck"`
	Stops []int `json:"stops"`
}

func (r Route) Clone() Route {
	stops := make([]int, len(r.Stops))
	copy(stops, r.Stops)
	return Route{Truck: r.Truck, Stops: stops}
}

func (r Route) String() string {
	return fmt.Sprintf("truck %d: %v", r.Truck, r.Stops)
}

// one route per truck
type Solution []Route

// deep copy; the search never changes a solution it did not clone
func (s Solution) Clone() Solution {
	if s == nil {
		return nil
	}
	x := make(Solution, len(s))
	for i, r := range s {
		x[i] = r.Clone()
	}
	return x
}

// number of trucks that serve at least one customer
func (s Solution) Used() int {
	var n int
	for _, r := range s {
		if len(r.Stops) > 0 {
			n++
		}
	}
	return n
}

// check every route against capacity
func (s Solution) Feasible(geo *Geometry, capacity float64) bool {
	for _, r := range s {
		if !geo.Feasible(r.Stops, capacity) {
			return false
		}
	}
	return true
}

// check that every customer is visited exactly once,
// and that no route carries the depot or an unknown id
func (s Solution) Validate(coords common.CoordMap) error {
	seen := make(map[int]int)
	for _, r := range s {
		for _, id := range r.Stops {
			if id == common.Depot {
				return fmt.Errorf("validate solution: truck %d visits the depot", r.Truck)
			}
			if _, ok := coords[id]; !ok {
				return fmt.Errorf("validate solution: truck %d visits unknown location %d", r.Truck, id)
			}
			if t, ok := seen[id]; ok {
				return fmt.Errorf("validate solution: location %d on trucks %d and %d", id, t, r.Truck)
			}
			seen[id] = r.Truck
		}
	}

	var missing []int
	for _, id := range coords.Customers() {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return fmt.Errorf("validate solution: locations %v not visited", missing)
	}
	return nil
}

func (s Solution) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// schema for route in schedule output
type RouteReport struct {
	Truck  int     `json:"truck"`
	Stops  []int   `json:"stops"`
	Length float64 `json:"length"`
}

// schema for schedule returned by a solver
type Schedule struct {
	Routes []RouteReport `json:"routes"`
	Score  float64       `json:"score"`
	Trucks int           `json:"trucks"`
	Stats  struct {
		Solver         string  `json:"solver"`
		Seed           int64   `json:"seed"`
		Capacity       float64 `json:"capacity"`
		InitialScore   float64 `json:"initial_score"`
		Iterations     int     `json:"iterations"`
		Improvements   int     `json:"improvements"`
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	} `json:"stats"`
}

// build schedule from a solution, computing lengths from scratch
func NewSchedule(sol Solution, geo *Geometry) Schedule {
	var s Schedule
	s.Routes = make([]RouteReport, len(sol))
	for i, r := range sol {
		c := r.Clone()
		s.Routes[i] = RouteReport{
			Truck:  c.Truck,
			Stops:  c.Stops,
			Length: geo.RouteLength(c.Stops),
		}
	}
	s.Score = geo.Score(sol)
	s.Trucks = len(sol)
	return s
}

// convert schedule back to a solution
func (s Schedule) Solution() Solution {
	sol := make(Solution, len(s.Routes))
	for i, r := range s.Routes {
		sol[i] = Route{Truck: r.Truck, Stops: r.Stops}.Clone()
	}
	return sol
}

func (s Schedule) String() string {
	return fmt.Sprintf("schedule with %d trucks, score %0.2f", s.Trucks, s.Score)
}

// interface to CVRP solvers
type Solver interface {
	Name() string
	Solve(coords common.CoordMap, capacity float64, seed int64) (Schedule, error)
}
