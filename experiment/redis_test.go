package experiment

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	sink, err := NewRedisSink("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink, mr
}

func TestRedisSinkBest(t *testing.T) {
	sink, _ := newMiniRedisSink(t)
	ctx := context.Background()

	for i, score := range []float64{810, 784.5, 799} {
		r := Run{ID: string(rune('a' + i)), Instance: "A-n32-k5.vrp", Solver: "vns_big", Seed: int64(i), Score: score}
		require.NoError(t, sink.RecordRun(ctx, r))
	}
	require.NoError(t, sink.RecordRun(ctx, Run{ID: "z", Instance: "A-n32-k5.vrp", Solver: "greedy", Score: 700}))

	best, err := sink.Best(ctx, "A-n32-k5.vrp", "vns_big")
	require.NoError(t, err)
	assert.Equal(t, "b", best.ID)
	assert.Equal(t, 784.5, best.Score)
	assert.Equal(t, int64(1), best.Seed)

	_, err = sink.Best(ctx, "A-n32-k5.vrp", "vns_small")
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestRedisSinkSummary(t *testing.T) {
	sink, mr := newMiniRedisSink(t)
	ctx := context.Background()

	s := Summary{ExperimentID: "exp", Instance: "A-n32-k5.vrp", Solver: "vns_mid", Samples: 3, Mean: 800, Median: 799, Best: 790}
	require.NoError(t, sink.RecordSummary(ctx, s))

	key := "cvrp:summary:exp:A-n32-k5.vrp:vns_mid"
	assert.Equal(t, "3", mr.HGet(key, "samples"))
	assert.Equal(t, "790", mr.HGet(key, "best"))
}

func TestRedisSinkFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	sink := NewRedisSinkFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer sink.Close()

	require.NoError(t, sink.RecordRun(context.Background(), Run{ID: "r1", Instance: "i", Solver: "s", Score: 1}))
	assert.True(t, mr.Exists("cvrp:run:r1"))
}

func TestNewRedisSinkBadURL(t *testing.T) {
	_, err := NewRedisSink("not a url")
	assert.Error(t, err)
}
