package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mobius-scheduler/cvrp/common"
	"github.com/mobius-scheduler/cvrp/vrp"
)

// one solver run on one instance with one seed
type Run struct {
	ID             string            `json:"id"`
	ExperimentID   string            `json:"experiment_id"`
	Instance       string            `json:"instance"`
	Solver         string            `json:"solver"`
	Seed           int64             `json:"seed"`
	Capacity       float64           `json:"capacity"`
	Score          float64           `json:"score"`
	InitialScore   float64           `json:"initial_score"`
	Trucks         int               `json:"trucks"`
	Iterations     int               `json:"iterations"`
	Improvements   int               `json:"improvements"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Routes         []vrp.RouteReport `json:"routes"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Sink receives every run and every per instance summary.
type Sink interface {
	RecordRun(ctx context.Context, r Run) error
	RecordSummary(ctx context.Context, s Summary) error
	Close() error
}

// fan out to several sinks; the first error per call is returned
// after every sink has been tried
type MultiSink []Sink

func (m MultiSink) RecordRun(ctx context.Context, r Run) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.RecordRun(ctx, r))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordSummary(ctx context.Context, sum Summary) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.RecordSummary(ctx, sum))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// CSVSink appends one `solver;instance;mean;median;best` row per summary.
// Runs are not written.
type CSVSink struct {
	Path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (c *CSVSink) RecordRun(context.Context, Run) error { return nil }

// the file is opened per row so that partial results survive a crash
func (c *CSVSink) RecordSummary(_ context.Context, s Summary) error {
	w, err := common.OpenCSVWriter(c.Path, ';', true)
	if err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	row := []string{
		s.Solver,
		s.Instance,
		fmt.Sprint(s.Mean),
		fmt.Sprint(s.Median),
		fmt.Sprint(s.Best),
	}
	if err := w.Write(row); err != nil {
		w.Close()
		return fmt.Errorf("csv sink: write %s: %w", c.Path, err)
	}
	return w.Close()
}

func (c *CSVSink) Close() error { return nil }
