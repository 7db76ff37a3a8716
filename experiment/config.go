package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mobius-scheduler/cvrp/vrp"
	"gopkg.in/yaml.v3"
)

var ErrNoInstances = errors.New("no instances to run")

// solver label for the constructive heuristic baseline
const Greedy = "greedy"

// schema for experiment config (.yaml) file
type Config struct {
	Instances    []string `yaml:"instances"`
	InstancesDir string   `yaml:"instances_dir"`
	Solvers      []string `yaml:"solvers"`
	KMax         int      `yaml:"k_max"`
	Capacity     float64  `yaml:"capacity"`
	Samples      int      `yaml:"samples"`
	FirstSeed    int64    `yaml:"first_seed"`
	ChainShake   bool     `yaml:"chain_shake"`
	Verbosity    int      `yaml:"verbosity"`
	Results      string   `yaml:"results"`
	SolutionsDir string   `yaml:"solutions_dir"`
	DatabaseURL  string   `yaml:"database_url"`
	RedisURL     string   `yaml:"redis_url"`
}

// k_max 50, capacity 300, 30 seeds, every preset
func DefaultConfig() Config {
	return Config{
		Solvers:  []string{string(vrp.Small), string(vrp.Mid), string(vrp.Big)},
		KMax:     50,
		Capacity: 300,
		Samples:  30,
		Results:  "results.csv",
	}
}

// read YAML config on top of the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// fill connection strings from the environment when the file leaves them empty
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
}

func (c Config) Validate() error {
	if len(c.Instances) == 0 && c.InstancesDir == "" {
		return ErrNoInstances
	}
	if len(c.Solvers) == 0 {
		return errors.New("no solvers configured")
	}
	for _, s := range c.Solvers {
		if s == Greedy {
			continue
		}
		if _, err := vrp.ParseOperatorSet(s); err != nil {
			return err
		}
	}
	if c.KMax < 1 {
		return fmt.Errorf("k_max must be positive (got %d)", c.KMax)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive (got %v)", c.Capacity)
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples must be positive (got %d)", c.Samples)
	}
	return nil
}

// instance paths: the explicit list, then every file of InstancesDir
func (c Config) InstancePaths() ([]string, error) {
	paths := append([]string(nil), c.Instances...)
	if c.InstancesDir != "" {
		entries, err := os.ReadDir(c.InstancesDir)
		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		var found []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				found = append(found, filepath.Join(c.InstancesDir, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, ErrNoInstances
	}
	return paths, nil
}
