package experiment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vns_runs (
		id UUID PRIMARY KEY,
		experiment_id UUID NOT NULL,
		instance TEXT NOT NULL,
		solver TEXT NOT NULL,
		seed BIGINT NOT NULL,
		capacity DOUBLE PRECISION NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		initial_score DOUBLE PRECISION NOT NULL,
		trucks INT NOT NULL,
		iterations INT NOT NULL,
		improvements INT NOT NULL,
		elapsed_seconds DOUBLE PRECISION NOT NULL,
		routes JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vns_summaries (
		experiment_id UUID NOT NULL,
		instance TEXT NOT NULL,
		solver TEXT NOT NULL,
		samples INT NOT NULL,
		mean DOUBLE PRECISION NOT NULL,
		median DOUBLE PRECISION NOT NULL,
		best DOUBLE PRECISION NOT NULL,
		std_dev DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (experiment_id, instance, solver)
	)`,
}

// PostgresSink stores every run and summary in postgres.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres sink: verify connection: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres sink: create schema: %w", err)
		}
	}
	return &PostgresSink{db: db}, nil
}

func (p *PostgresSink) RecordRun(ctx context.Context, r Run) error {
	routes, err := json.Marshal(r.Routes)
	if err != nil {
		return fmt.Errorf("postgres sink: encode routes: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO vns_runs (id, experiment_id, instance, solver, seed, capacity, score, initial_score, trucks, iterations, improvements, elapsed_seconds, routes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.ExperimentID, r.Instance, r.Solver, r.Seed, r.Capacity, r.Score, r.InitialScore,
		r.Trucks, r.Iterations, r.Improvements, r.ElapsedSeconds, string(routes), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres sink: insert run %s: %w", r.ID, err)
	}
	return nil
}

func (p *PostgresSink) RecordSummary(ctx context.Context, s Summary) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO vns_summaries (experiment_id, instance, solver, samples, mean, median, best, std_dev)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (experiment_id, instance, solver) DO UPDATE
		SET samples = EXCLUDED.samples, mean = EXCLUDED.mean, median = EXCLUDED.median, best = EXCLUDED.best, std_dev = EXCLUDED.std_dev`,
		s.ExperimentID, s.Instance, s.Solver, s.Samples, s.Mean, s.Median, s.Best, s.StdDev)
	if err != nil {
		return fmt.Errorf("postgres sink: upsert summary %s/%s: %w", s.Instance, s.Solver, err)
	}
	return nil
}

// best run ever recorded for an instance and solver, across experiments
func (p *PostgresSink) Best(ctx context.Context, instance, solver string) (Run, error) {
	var r Run
	var routes []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, experiment_id::text, instance, solver, seed, capacity, score, initial_score, trucks, iterations, improvements, elapsed_seconds, routes, created_at
		FROM vns_runs WHERE instance=$1 AND solver=$2 ORDER BY score ASC, created_at ASC LIMIT 1`,
		instance, solver).Scan(&r.ID, &r.ExperimentID, &r.Instance, &r.Solver, &r.Seed, &r.Capacity, &r.Score,
		&r.InitialScore, &r.Trucks, &r.Iterations, &r.Improvements, &r.ElapsedSeconds, &routes, &r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("postgres sink: best %s/%s: %w", instance, solver, err)
	}
	if err := json.Unmarshal(routes, &r.Routes); err != nil {
		return Run{}, fmt.Errorf("postgres sink: decode routes: %w", err)
	}
	return r, nil
}

func (p *PostgresSink) Close() error {
	return p.db.Close()
}
