package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Netlist         string  `yaml:"netlist"`
	Dataset         string  `yaml:"dataset"`
	HistoryDB       string  `yaml:"history_db"`
	InputDim        int     `yaml:"input_dim"`
	OutputDim       int     `yaml:"output_dim"`
	Epochs          int     `yaml:"epochs"`
	Gamma           float64 `yaml:"gamma"`
	Eta             float64 `yaml:"eta"`
	Lambda          float64 `yaml:"lambda"`
	Shuffle         bool    `yaml:"shuffle"`
	Seed            int64   `yaml:"seed"`
	CheckpointEvery int     `yaml:"checkpoint_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Netlist         string
	Dataset         string
	HistoryDB       string
	Epochs          int
	Gamma           float64
	Eta             float64
	Shuffle         string
	Seed            int64
	CheckpointEvery int
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.Netlist != "" {
		c.Netlist = o.Netlist
	}
	if o.Dataset != "" {
		c.Dataset = o.Dataset
	}
	if o.HistoryDB != "" {
		c.HistoryDB = o.HistoryDB
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.Gamma > 0 {
		c.Gamma = o.Gamma
	}
	if o.Eta > 0 {
		c.Eta = o.Eta
	}
	if o.Shuffle != "" {
		v, err := strconv.ParseBool(o.Shuffle)
		if err != nil {
			return fmt.Errorf("shuffle override: %w", err)
		}
		c.Shuffle = v
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.CheckpointEvery > 0 {
		c.CheckpointEvery = o.CheckpointEvery
	}
	return nil
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Netlist == "" {
		return errors.New("netlist path must be set")
	}
	if c.Dataset == "" {
		return errors.New("dataset path must be set")
	}
	if c.InputDim <= 0 || c.OutputDim <= 0 {
		return fmt.Errorf("input_dim and output_dim must be > 0 (got %d, %d)", c.InputDim, c.OutputDim)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.Gamma <= 0 {
		return fmt.Errorf("gamma must be > 0 (got %g)", c.Gamma)
	}
	if c.Eta < 0 || c.Eta > 1 {
		return fmt.Errorf("eta must be in [0,1] (got %g)", c.Eta)
	}
	if c.Lambda < 0 {
		return fmt.Errorf("lambda must be >= 0 (got %g)", c.Lambda)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must be >= 0 (got %d)", c.CheckpointEvery)
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return nil
}

// CheckpointEpochs expands checkpoint_every into an explicit epoch list.
// Zero selects every epoch (nil list).
func (c *Config) CheckpointEpochs() []int {
	if c.CheckpointEvery <= 0 {
		return nil
	}
	var epochs []int
	for e := 0; e < c.Epochs; e += c.CheckpointEvery {
		epochs = append(epochs, e)
	}
	return epochs
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: missing ':'", lineNo)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")
		switch key {
		case "netlist":
			cfg.Netlist = value
		case "dataset":
			cfg.Dataset = value
		case "history_db":
			cfg.HistoryDB = value
		case "input_dim":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: input_dim: %w", lineNo, err)
			}
			cfg.InputDim = v
		case "output_dim":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: output_dim: %w", lineNo, err)
			}
			cfg.OutputDim = v
		case "epochs":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: epochs: %w", lineNo, err)
			}
			cfg.Epochs = v
		case "gamma":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: gamma: %w", lineNo, err)
			}
			cfg.Gamma = v
		case "eta":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: eta: %w", lineNo, err)
			}
			cfg.Eta = v
		case "lambda":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: lambda: %w", lineNo, err)
			}
			cfg.Lambda = v
		case "shuffle":
			v, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: shuffle: %w", lineNo, err)
			}
			cfg.Shuffle = v
		case "seed":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: seed: %w", lineNo, err)
			}
			cfg.Seed = v
		case "checkpoint_every":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: checkpoint_every: %w", lineNo, err)
			}
			cfg.CheckpointEvery = v
		default:
			return nil, fmt.Errorf("line %d: unknown key %s", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}
