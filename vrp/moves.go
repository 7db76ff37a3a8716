package vrp

import (
	"fmt"
	"strings"
)

// Move operators are pure: they copy their inputs and return new
// sequences. Indices are positions, not location ids. Feasibility and
// bounds are the caller's concern; an out-of-range index panics.

func clone(stops []int) []int {
	x := make([]int, len(stops))
	copy(x, stops)
	return x
}

func remove(stops []int, i int) ([]int, int) {
	stop := stops[i]
	return append(stops[:i], stops[i+1:]...), stop
}

func insert(stops []int, i int, stop int) []int {
	if i < 0 || i > len(stops) {
		panic(fmt.Sprintf("vrp: insert index %d out of range [0:%d]", i, len(stops)))
	}
	stops = append(stops, 0)
	copy(stops[i+1:], stops[i:])
	stops[i] = stop
	return stops
}

// exchange the stops at positions i and j of one route
func IntraSwap(route []int, i, j int) []int {
	x := clone(route)
	x[i], x[j] = x[j], x[i]
	return x
}

// pop the stop at position j, then insert it at position i
// of the shortened route
func IntraShift(route []int, i, j int) []int {
	x, stop := remove(clone(route), j)
	return insert(x, i, stop)
}

// exchange stop i of route a with stop j of route b
func InterSwap(a, b []int, i, j int) ([]int, []int) {
	x, y := clone(a), clone(b)
	x[i], y[j] = y[j], x[i]
	return x, y
}

// pop stop i of route a and insert it at position j of route b
func InterShift(a, b []int, i, j int) ([]int, []int) {
	x, stop := remove(clone(a), i)
	return x, insert(clone(b), j, stop)
}

// exchange l consecutive stops of a (from i) with l consecutive
// stops of b (from j), one single-position swap per offset
func SequenceExchange(a, b []int, i, j, l int) ([]int, []int) {
	x, y := clone(a), clone(b)
	for n := 0; n < l; n++ {
		x, y = InterSwap(x, y, i+n, j+n)
	}
	return x, y
}

// named intra-route movement
type IntraMove struct {
	Name  string
	Apply func(route []int, i, j int) []int
}

// named inter-route movement
type InterMove struct {
	Name  string
	Apply func(a, b []int, i, j int) ([]int, []int)
}

var (
	IntraSwapMove  = IntraMove{Name: "intra_swap", Apply: IntraSwap}
	IntraShiftMove = IntraMove{Name: "intra_shift", Apply: IntraShift}
	InterSwapMove  = InterMove{Name: "inter_swap", Apply: InterSwap}
	InterShiftMove = InterMove{Name: "inter_shift", Apply: InterShift}
)

// which movements the local search may use
type OperatorSet string

const (
	// {intra swap}, {inter swap}
	Small OperatorSet = "small"
	// {intra swap}, {inter swap, inter shift}
	Mid OperatorSet = "mid"
	// {intra swap, intra shift}, {inter swap, inter shift}
	Big OperatorSet = "big"
)

var OperatorSets = []OperatorSet{Small, Mid, Big}

func ParseOperatorSet(s string) (OperatorSet, error) {
	o := OperatorSet(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case Small, Mid, Big:
		return o, nil
	}
	return "", fmt.Errorf("parse operator set: unknown preset %q (want small, mid or big)", s)
}

// get fresh inter and intra movement lists for the preset
func (o OperatorSet) Moves() ([]InterMove, []IntraMove) {
	switch o {
	case Small:
		return []InterMove{InterSwapMove}, []IntraMove{IntraSwapMove}
	case Mid:
		return []InterMove{InterSwapMove, InterShiftMove}, []IntraMove{IntraSwapMove}
	case Big:
		return []InterMove{InterSwapMove, InterShiftMove}, []IntraMove{IntraSwapMove, IntraShiftMove}
	}
	return nil, nil
}

func (o OperatorSet) String() string { return string(o) }
