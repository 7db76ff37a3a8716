package vrp

import (
	"errors"
	"fmt"

	"github.com/mobius-scheduler/cvrp/common"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"
)

// Euclidean distance between two locations
func Distance(a, b common.Location) float64 {
	return planar.Distance(point(a), point(b))
}

func point(l common.Location) orb.Point {
	return orb.Point{float64(l.X), float64(l.Y)}
}

func lookup(coords common.CoordMap, id int) common.Location {
	loc, ok := coords[id]
	if !ok {
		panic(fmt.Sprintf("vrp: unknown location id %d", id))
	}
	return loc
}

// length of a route, including the legs from and back to the depot
// an empty route has length 0
func RouteLength(stops []int, coords common.CoordMap) float64 {
	if len(stops) == 0 {
		return 0
	}

	depot := lookup(coords, common.Depot)
	length := Distance(depot, lookup(coords, stops[0]))
	for i := 0; i < len(stops)-1; i++ {
		length += Distance(lookup(coords, stops[i]), lookup(coords, stops[i+1]))
	}
	length += Distance(lookup(coords, stops[len(stops)-1]), depot)
	return length
}

// a route is feasible iff its length is strictly below capacity
func ValidateRoute(stops []int, capacity float64, coords common.CoordMap) bool {
	return RouteLength(stops, coords) < capacity
}

// sum of route lengths over the solution
func SolutionScore(sol Solution, coords common.CoordMap) float64 {
	var score float64
	for _, r := range sol {
		score += RouteLength(r.Stops, coords)
	}
	return score
}

// Geometry holds a coordinate map together with its pairwise distance
// matrix. Lengths computed through a Geometry are bit-identical to
// RouteLength over the same map.
type Geometry struct {
	coords common.CoordMap
	index  map[int]int
	dist   *mat.SymDense
}

func NewGeometry(coords common.CoordMap) (*Geometry, error) {
	if !coords.HasDepot() {
		return nil, errors.New("new geometry: coordinate map has no depot")
	}

	ids := coords.IDs()
	g := &Geometry{
		coords: coords,
		index:  make(map[int]int, len(ids)),
		dist:   mat.NewSymDense(len(ids), nil),
	}
	for i, id := range ids {
		g.index[id] = i
	}
	for i, a := range ids {
		for j := i; j < len(ids); j++ {
			g.dist.SetSym(i, j, Distance(coords[a], coords[ids[j]]))
		}
	}
	return g, nil
}

func (g *Geometry) Coords() common.CoordMap { return g.coords }

// number of locations, depot included
func (g *Geometry) Size() int { return len(g.index) }

func (g *Geometry) idx(id int) int {
	i, ok := g.index[id]
	if !ok {
		panic(fmt.Sprintf("vrp: unknown location id %d", id))
	}
	return i
}

// distance between two location ids
func (g *Geometry) Dist(a, b int) float64 {
	return g.dist.At(g.idx(a), g.idx(b))
}

func (g *Geometry) RouteLength(stops []int) float64 {
	if len(stops) == 0 {
		return 0
	}

	length := g.Dist(common.Depot, stops[0])
	for i := 0; i < len(stops)-1; i++ {
		length += g.Dist(stops[i], stops[i+1])
	}
	length += g.Dist(stops[len(stops)-1], common.Depot)
	return length
}

func (g *Geometry) Feasible(stops []int, capacity float64) bool {
	return g.RouteLength(stops) < capacity
}

func (g *Geometry) Score(sol Solution) float64 {
	var score float64
	for _, r := range sol {
		score += g.RouteLength(r.Stops)
	}
	return score
}
