package vns

import (
	"errors"
	"fmt"

	"github.com/mobius-scheduler/cvrp/vrp"
	log "github.com/sirupsen/logrus"
)

const (
	// attempt ceiling for the sequence exchange shakes
	MaxAttempts = 50
	// attempt ceiling for each of the two MC2 moves
	MaxMoveAttempts = 1000
)

// Options configures one VNS run.
type Options struct {
	KMax      int
	Capacity  float64
	Operators vrp.OperatorSet
	Seed      int64

	// 0 reports the result, 1 improvements, 2 every shake and descent.
	// Only affects logging.
	Verbosity int

	// feed each shake round the previous round's output
	// instead of the shake input
	ChainShake bool

	MaxAttempts     int
	MaxMoveAttempts int

	Recorder Recorder

	// used as is when set; otherwise a logger at LevelFor(Verbosity)
	Logger *log.Logger
}

// k_max 50, capacity 300, big preset
func DefaultOptions() Options {
	return Options{
		KMax:            50,
		Capacity:        300,
		Operators:       vrp.Big,
		MaxAttempts:     MaxAttempts,
		MaxMoveAttempts: MaxMoveAttempts,
	}
}

func (o Options) Validate() error {
	if o.KMax < 1 {
		return fmt.Errorf("k_max must be positive (got %d)", o.KMax)
	}
	if o.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive (got %v)", o.Capacity)
	}
	if _, err := vrp.ParseOperatorSet(string(o.Operators)); err != nil {
		return err
	}
	if o.Verbosity < 0 || o.Verbosity > 2 {
		return fmt.Errorf("verbosity must be 0, 1 or 2 (got %d)", o.Verbosity)
	}
	if o.MaxAttempts < 0 || o.MaxMoveAttempts < 0 {
		return errors.New("attempt ceilings must not be negative")
	}
	return nil
}

// fill zero ceilings with package defaults
func (o Options) withDefaults() Options {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = MaxAttempts
	}
	if o.MaxMoveAttempts == 0 {
		o.MaxMoveAttempts = MaxMoveAttempts
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

// map verbosity 0/1/2 to a logrus level
func LevelFor(verbosity int) log.Level {
	switch {
	case verbosity >= 2:
		return log.TraceLevel
	case verbosity == 1:
		return log.DebugLevel
	}
	return log.InfoLevel
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	std := log.StandardLogger()
	l := log.New()
	l.SetOutput(std.Out)
	l.SetFormatter(std.Formatter)
	l.SetLevel(LevelFor(o.Verbosity))
	return l
}

// Recorder observes the search; it never influences it.
type Recorder interface {
	Iteration(k int, improved bool)
	Move(operator string)
	Shake(neighborhood string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) Iteration(int, bool) {}
func (nopRecorder) Move(string)         {}
func (nopRecorder) Shake(string, bool)  {}
