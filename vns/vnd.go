package vns

import (
	"math/rand"

	"github.com/mobius-scheduler/cvrp/vrp"
	log "github.com/sirupsen/logrus"
)

// Search carries what every neighborhood needs: the geometry, the
// capacity, the movement lists and the run's random stream.
type Search struct {
	Geo      *vrp.Geometry
	Capacity float64
	Rng      *rand.Rand
	Inter    []vrp.InterMove
	Intra    []vrp.IntraMove

	MaxAttempts     int
	MaxMoveAttempts int
	ChainShake      bool
	Recorder        Recorder

	log   *log.Entry
	stats *Stats
}

func NewSearch(geo *vrp.Geometry, opts Options, rng *rand.Rand) *Search {
	opts = opts.withDefaults()
	inter, intra := opts.Operators.Moves()
	return &Search{
		Geo:             geo,
		Capacity:        opts.Capacity,
		Rng:             rng,
		Inter:           inter,
		Intra:           intra,
		MaxAttempts:     opts.MaxAttempts,
		MaxMoveAttempts: opts.MaxMoveAttempts,
		ChainShake:      opts.ChainShake,
		Recorder:        opts.Recorder,
		log:             log.NewEntry(opts.logger()),
		stats:           newStats(),
	}
}

func (s *Search) feasible(stops []int) bool {
	return s.Geo.Feasible(stops, s.Capacity)
}

func (s *Search) shuffledMoves() ([]vrp.InterMove, []vrp.IntraMove) {
	inter := append([]vrp.InterMove(nil), s.Inter...)
	intra := append([]vrp.IntraMove(nil), s.Intra...)
	s.Rng.Shuffle(len(inter), func(i, j int) { inter[i], inter[j] = inter[j], inter[i] })
	s.Rng.Shuffle(len(intra), func(i, j int) { intra[i], intra[j] = intra[j], intra[i] })
	return inter, intra
}

// Descend applies the first improving, feasible move it finds and
// returns the new solution with the name of the movement used.
// Intra-route moves are tried on every route before any inter-route
// move. The boolean is false when no movement improves; the input is
// then returned untouched.
func (s *Search) Descend(sol vrp.Solution) (vrp.Solution, string, bool) {
	inter, intra := s.shuffledMoves()

	for r := range sol {
		stops := sol[r].Stops
		rl := s.Geo.RouteLength(stops)

		for _, m := range intra {
			// every ordered pair of distinct positions
			for i := range stops {
				for j := range stops {
					if i == j {
						continue
					}
					cand := m.Apply(stops, i, j)
					if s.Geo.RouteLength(cand) < rl && s.feasible(cand) {
						next := sol.Clone()
						next[r].Stops = cand
						return next, m.Name, true
					}
				}
			}
		}
	}

	for a := range sol {
		for b := range sol {
			if a == b {
				continue
			}
			first, second := sol[a].Stops, sol[b].Stops
			rl := s.Geo.RouteLength(first) + s.Geo.RouteLength(second)

			for _, m := range inter {
				for i := range first {
					for j := range second {
						x, y := m.Apply(first, second, i, j)
						if s.Geo.RouteLength(x)+s.Geo.RouteLength(y) < rl && s.feasible(x) && s.feasible(y) {
							next := sol.Clone()
							next[a].Stops = x
							next[b].Stops = y
							return next, m.Name, true
						}
					}
				}
			}
		}
	}

	return sol, "", false
}

// VND repeats Descend until no movement improves, and returns the
// last improved solution (the input itself when nothing improved).
func (s *Search) VND(sol vrp.Solution) vrp.Solution {
	current := sol
	for {
		next, op, ok := s.Descend(current)
		if !ok {
			return current
		}
		s.stats.Moves[op]++
		s.Recorder.Move(op)
		current = next
	}
}
