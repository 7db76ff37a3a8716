//go:build postgres_integration

package experiment

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mobius-scheduler/cvrp/vrp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	sink, err := NewPostgresSink(ctx, dsn)
	require.NoError(t, err)
	defer sink.Close()

	experimentID := uuid.NewString()
	instance := "it-" + experimentID + ".vrp"
	for i, score := range []float64{812.5, 799.25} {
		r := Run{
			ID:           uuid.NewString(),
			ExperimentID: experimentID,
			Instance:     instance,
			Solver:       "vns_big",
			Seed:         int64(i),
			Capacity:     300,
			Score:        score,
			Trucks:       1,
			Routes:       []vrp.RouteReport{{Truck: 1, Stops: []int{2, 3}, Length: score}},
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, sink.RecordRun(ctx, r))
	}

	best, err := sink.Best(ctx, instance, "vns_big")
	require.NoError(t, err)
	assert.Equal(t, 799.25, best.Score)
	assert.Equal(t, int64(1), best.Seed)
	assert.Equal(t, []int{2, 3}, best.Routes[0].Stops)

	s := Summary{ExperimentID: experimentID, Instance: instance, Solver: "vns_big", Samples: 2, Mean: 805.875, Median: 805.875, Best: 799.25}
	require.NoError(t, sink.RecordSummary(ctx, s))
	// upsert
	require.NoError(t, sink.RecordSummary(ctx, s))
}
