package vns

import (
	"errors"
	"fmt"

	"github.com/mobius-scheduler/cvrp/vrp"
)

// a shake neighborhood found no feasible move within its attempt ceiling
var ErrNoFeasibleMove = errors.New("no feasible move found")

// indices of routes with at least n stops
func routesWith(sol vrp.Solution, n int) []int {
	var idx []int
	for i, r := range sol {
		if len(r.Stops) >= n {
			idx = append(idx, i)
		}
	}
	return idx
}

// two distinct random elements of idx; len(idx) must be at least 2
func (s *Search) pickPair(idx []int) (int, int) {
	a := s.Rng.Intn(len(idx))
	b := s.Rng.Intn(len(idx) - 1)
	if b >= a {
		b++
	}
	return idx[a], idx[b]
}

// MC2 performs two random feasible moves of different types. Each move
// picks intra or inter at random, then a movement not used yet in this
// call, then routes and positions. Infeasible draws are retried up to
// MaxMoveAttempts times per move; past that the input is returned with
// ErrNoFeasibleMove.
func (s *Search) MC2(sol vrp.Solution) (vrp.Solution, error) {
	next := sol.Clone()
	intra := []vrp.IntraMove{vrp.IntraSwapMove, vrp.IntraShiftMove}
	inter := []vrp.InterMove{vrp.InterSwapMove, vrp.InterShiftMove}

	for n := 0; n < 2; n++ {
		done := false
		for attempt := 0; attempt < s.MaxMoveAttempts && !done; attempt++ {
			intra_routes := routesWith(next, 2)
			inter_routes := routesWith(next, 1)
			can_intra := len(intra) > 0 && len(intra_routes) > 0
			can_inter := len(inter) > 0 && len(inter_routes) > 1
			if !can_intra && !can_inter {
				return sol.Clone(), fmt.Errorf("mc2: no applicable movement: %w", ErrNoFeasibleMove)
			}

			if can_intra && (!can_inter || s.Rng.Intn(2) == 0) {
				m := s.Rng.Intn(len(intra))
				r := intra_routes[s.Rng.Intn(len(intra_routes))]
				stops := next[r].Stops

				first := s.Rng.Intn(len(stops))
				second := s.Rng.Intn(len(stops) - 1)
				if second >= first {
					second++
				}

				cand := intra[m].Apply(stops, first, second)
				if s.feasible(cand) {
					next[r].Stops = cand
					// no movement is used twice
					intra = append(intra[:m], intra[m+1:]...)
					done = true
				}
			} else {
				m := s.Rng.Intn(len(inter))
				o, d := s.pickPair(inter_routes)
				origin, dest := next[o].Stops, next[d].Stops

				first := s.Rng.Intn(len(origin))
				second := s.Rng.Intn(len(dest))

				x, y := inter[m].Apply(origin, dest, first, second)
				if s.feasible(x) && s.feasible(y) {
					next[o].Stops, next[d].Stops = x, y
					inter = append(inter[:m], inter[m+1:]...)
					done = true
				}
			}
		}
		if !done {
			return sol.Clone(), fmt.Errorf("mc2: move %d after %d attempts: %w", n+1, s.MaxMoveAttempts, ErrNoFeasibleMove)
		}
	}

	return next, nil
}

// random window start for a route of n stops; 0 when the window spans
// the whole route
func (s *Search) offset(n, l int) int {
	if n == l {
		return 0
	}
	return s.Rng.Intn(n - l + 1)
}

// SequenceShake exchanges windows of l stops between two random routes
// that hold at least l stops each. Draws are retried up to MaxAttempts
// times; past that an unchanged copy is returned with ErrNoFeasibleMove.
func (s *Search) SequenceShake(sol vrp.Solution, l int) (vrp.Solution, error) {
	eligible := routesWith(sol, l)
	if len(eligible) < 2 {
		return sol.Clone(), fmt.Errorf("se%d: %d routes with %d stops: %w", l, len(eligible), l, ErrNoFeasibleMove)
	}

	for attempt := 0; attempt < s.MaxAttempts; attempt++ {
		o, d := s.pickPair(eligible)
		origin, dest := sol[o].Stops, sol[d].Stops

		first := s.offset(len(origin), l)
		second := s.offset(len(dest), l)

		x, y := vrp.SequenceExchange(origin, dest, first, second, l)
		if s.feasible(x) && s.feasible(y) {
			next := sol.Clone()
			next[o].Stops, next[d].Stops = x, y
			return next, nil
		}
	}

	return sol.Clone(), fmt.Errorf("se%d: after %d attempts: %w", l, s.MaxAttempts, ErrNoFeasibleMove)
}

func (s *Search) SE2(sol vrp.Solution) (vrp.Solution, error) { return s.SequenceShake(sol, 2) }
func (s *Search) SE3(sol vrp.Solution) (vrp.Solution, error) { return s.SequenceShake(sol, 3) }

type neighborhood struct {
	name  string
	apply func(vrp.Solution) (vrp.Solution, error)
}

func (s *Search) neighborhoods() []neighborhood {
	return []neighborhood{
		{name: "mc2", apply: s.MC2},
		{name: "se2", apply: s.SE2},
		{name: "se3", apply: s.SE3},
	}
}

// Shake runs k rounds; each round picks one of MC2, SE2, SE3 and applies
// it once or twice. Every application starts again from the shake input
// unless ChainShake is set, so only the last application of the last
// round shows in the result.
func (s *Search) Shake(sol vrp.Solution, k int) vrp.Solution {
	next := sol.Clone()
	nbs := s.neighborhoods()

	for round := 0; round < k; round++ {
		nb := nbs[s.Rng.Intn(len(nbs))]
		times := 1 + s.Rng.Intn(2)
		for t := 0; t < times; t++ {
			base := sol
			if s.ChainShake {
				base = next
			}

			out, err := nb.apply(base)
			s.Recorder.Shake(nb.name, err == nil)
			if err != nil {
				s.stats.ShakeFailures++
				s.log.Tracef("[vns] shake %s: %v", nb.name, err)
			}
			next = out
		}
	}

	return next
}
