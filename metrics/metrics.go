package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the solver
	Registry = prometheus.NewRegistry()

	// Iterations counts VNS iterations by preset and outcome
	Iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vns_iterations_total", Help: "VNS iterations by preset and outcome."},
		[]string{"preset", "outcome"},
	)
	// Neighborhood tracks the k reached at each iteration
	Neighborhood = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vns_neighborhood_k", Help: "Neighborhood index k per iteration.", Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55}},
		[]string{"preset"},
	)
	// Moves counts improving VND moves by movement
	Moves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vnd_moves_total", Help: "Improving VND moves by movement."},
		[]string{"preset", "movement"},
	)
	// Shakes counts shake applications by neighborhood and status
	Shakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vns_shakes_total", Help: "Shake applications by neighborhood and status."},
		[]string{"preset", "neighborhood", "status"},
	)
	// Runs counts finished solver runs
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Finished solver runs by solver and status."},
		[]string{"solver", "status"},
	)
	// RunDuration records run durations in seconds
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_run_duration_seconds", Help: "Solver run duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 14)},
		[]string{"solver"},
	)
	// BestScore holds the best score seen per instance and solver
	BestScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "solver_best_score", Help: "Best score seen per instance and solver."},
		[]string{"instance", "solver"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the solver registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Iterations)
		Registry.MustRegister(Neighborhood)
		Registry.MustRegister(Moves)
		Registry.MustRegister(Shakes)
		Registry.MustRegister(Runs)
		Registry.MustRegister(RunDuration)
		Registry.MustRegister(BestScore)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// WriteTextfile dumps the registry in text format, for the node exporter
// textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// Recorder feeds VNS search events into the counters, labelled by preset.
type Recorder struct {
	Preset string
}

func NewRecorder(preset string) *Recorder {
	return &Recorder{Preset: preset}
}

func (r *Recorder) Iteration(k int, improved bool) {
	outcome := "rejected"
	if improved {
		outcome = "improved"
	}
	Iterations.WithLabelValues(r.Preset, outcome).Inc()
	Neighborhood.WithLabelValues(r.Preset).Observe(float64(k))
}

func (r *Recorder) Move(movement string) {
	Moves.WithLabelValues(r.Preset, movement).Inc()
}

func (r *Recorder) Shake(neighborhood string, ok bool) {
	Shakes.WithLabelValues(r.Preset, neighborhood, strconv.FormatBool(ok)).Inc()
}

// ObserveRun records a finished run and keeps the lowest score per
// instance.
func ObserveRun(instance, solver string, seconds, score float64, err error) {
	if err != nil {
		Runs.WithLabelValues(solver, "error").Inc()
		return
	}
	Runs.WithLabelValues(solver, "ok").Inc()
	RunDuration.WithLabelValues(solver).Observe(seconds)

	mu.Lock()
	defer mu.Unlock()
	key := instance + "\x00" + solver
	if prev, ok := bestScores[key]; !ok || score < prev {
		bestScores[key] = score
		BestScore.WithLabelValues(instance, solver).Set(score)
	}
}

var (
	mu         sync.Mutex
	bestScores = map[string]float64{}
)
