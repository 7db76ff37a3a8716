package common

import (
	"fmt"
	"sort"
)

// id reserved for the depot in every instance
const Depot = 1

// schema for a location on the plane
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d)", l.X, l.Y)
}

// coordinate map object: location id --> coordinates
// shared read-only once parsed
type CoordMap map[int]Location

// get customer ids (every id except the depot), sorted
func (cm CoordMap) Customers() []int {
	ids := make([]int, 0, len(cm))
	for id := range cm {
		if id != Depot {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// get all ids, depot included, sorted
func (cm CoordMap) IDs() []int {
	ids := make([]int, 0, len(cm))
	for id := range cm {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// check that the map carries a depot
func (cm CoordMap) HasDepot() bool {
	_, ok := cm[Depot]
	return ok
}
