package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

var ErrNoRuns = errors.New("no runs recorded")

// RedisSink keeps every run as JSON and a sorted set of scores per
// instance and solver, so the best known solution is one ZRANGE away.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSink(url string) (*RedisSink, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis sink: %w", err)
	}
	return NewRedisSinkFromClient(redis.NewClient(opt)), nil
}

func NewRedisSinkFromClient(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb, prefix: "cvrp"}
}

func (s *RedisSink) runKey(id string) string {
	return s.prefix + ":run:" + id
}

func (s *RedisSink) scoresKey(instance, solver string) string {
	return s.prefix + ":scores:" + instance + ":" + solver
}

func (s *RedisSink) summaryKey(experimentID, instance, solver string) string {
	return s.prefix + ":summary:" + experimentID + ":" + instance + ":" + solver
}

func (s *RedisSink) RecordRun(ctx context.Context, r Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis sink: encode run: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.runKey(r.ID), data, 0)
	pipe.ZAdd(ctx, s.scoresKey(r.Instance, r.Solver), redis.Z{Score: r.Score, Member: r.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sink: record run %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisSink) RecordSummary(ctx context.Context, sum Summary) error {
	err := s.rdb.HSet(ctx, s.summaryKey(sum.ExperimentID, sum.Instance, sum.Solver),
		"samples", sum.Samples,
		"mean", sum.Mean,
		"median", sum.Median,
		"best", sum.Best,
		"std_dev", sum.StdDev,
	).Err()
	if err != nil {
		return fmt.Errorf("redis sink: record summary %s/%s: %w", sum.Instance, sum.Solver, err)
	}
	return nil
}

// lowest scoring run recorded for an instance and solver
func (s *RedisSink) Best(ctx context.Context, instance, solver string) (Run, error) {
	ids, err := s.rdb.ZRange(ctx, s.scoresKey(instance, solver), 0, 0).Result()
	if err != nil {
		return Run{}, fmt.Errorf("redis sink: best %s/%s: %w", instance, solver, err)
	}
	if len(ids) == 0 {
		return Run{}, fmt.Errorf("redis sink: best %s/%s: %w", instance, solver, ErrNoRuns)
	}
	data, err := s.rdb.Get(ctx, s.runKey(ids[0])).Bytes()
	if err != nil {
		return Run{}, fmt.Errorf("redis sink: load run %s: %w", ids[0], err)
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return Run{}, fmt.Errorf("redis sink: decode run %s: %w", ids[0], err)
	}
	return r, nil
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
