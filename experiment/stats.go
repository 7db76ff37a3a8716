package experiment

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// aggregate of the scores of one solver on one instance
type Summary struct {
	ExperimentID string  `json:"experiment_id"`
	Instance     string  `json:"instance"`
	Solver       string  `json:"solver"`
	Samples      int     `json:"samples"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Best         float64 `json:"best"`
	StdDev       float64 `json:"std_dev"`
}

// mean, median (middle pair averaged for even counts), best and sample
// standard deviation; empty input gives a zero summary
func Summarize(scores []float64) Summary {
	s := Summary{Samples: len(scores)}
	if len(scores) == 0 {
		return s
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Best = floats.Min(sorted)
	n := len(sorted)
	if n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	if n > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}
