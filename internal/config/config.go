// Package config loads the run configuration of the mnist command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/net"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataDir          string `yaml:"data_dir"`
	Synthetic        bool   `yaml:"synthetic"`
	SyntheticSamples int    `yaml:"synthetic_samples"`
	MaxSamples       int    `yaml:"max_samples"`

	InputSize    int     `yaml:"input_size"`
	HiddenSizes  []int   `yaml:"hidden_sizes"`
	OutputSize   int     `yaml:"output_size"`
	Init         string  `yaml:"init"`
	LearningRate float64 `yaml:"learning_rate"`

	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	Seed            uint64  `yaml:"seed"`
	Shuffle         bool    `yaml:"shuffle"`
	ValidationSplit float64 `yaml:"validation_split"`
	EarlyStopping   int     `yaml:"early_stopping"`
	LogEvery        int     `yaml:"log_every"`

	Checkpoint string `yaml:"checkpoint"`
	CSVLog     string `yaml:"csv_log"`
	Plot       string `yaml:"plot"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDir      string
	Synthetic    bool
	Epochs       int
	BatchSize    int
	LearningRate float64
	// Seed is applied when non-nil, so an explicit zero seed overrides too.
	Seed         *uint64
	Checkpoint   string
	CSVLog       string
	Plot         string
}

// Default returns the configuration of the reference MNIST run.
func Default() *Config {
	nc := net.DefaultConfig()
	return &Config{
		DataDir:          "data",
		SyntheticSamples: 2000,
		InputSize:        nc.InputSize,
		HiddenSizes:      slices.Clone(nc.HiddenLayersSize),
		OutputSize:       nc.OutputSize,
		Init:             nc.Init,
		LearningRate:     nc.LearningRate,
		Epochs:           10,
		BatchSize:        128,
		Shuffle:          true,
		LogEvery:         1,
	}
}

// Load reads and validates a Config from YAML. Keys absent from the file
// keep their Default value; unknown keys are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML from r on top of Default without validating.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Synthetic {
		c.Synthetic = true
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.Checkpoint != "" {
		c.Checkpoint = o.Checkpoint
	}
	if o.CSVLog != "" {
		c.CSVLog = o.CSVLog
	}
	if o.Plot != "" {
		c.Plot = o.Plot
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !c.Synthetic && c.DataDir == "" {
		return errors.New("data_dir must be set unless synthetic is true")
	}
	if c.Synthetic && c.SyntheticSamples <= 0 {
		return fmt.Errorf("synthetic_samples must be > 0 (got %d)", c.SyntheticSamples)
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("max_samples must be >= 0 (got %d)", c.MaxSamples)
	}
	if _, err := c.Net().Sizes(); err != nil {
		return err
	}
	if !slices.Contains(layer.InitMethods(), c.Init) {
		return fmt.Errorf("%w: %q (known: %v)", layer.ErrUnknownInitMethod, c.Init, layer.InitMethods())
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %v)", c.LearningRate)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		return fmt.Errorf("validation_split must be in [0, 1) (got %v)", c.ValidationSplit)
	}
	if c.EarlyStopping < 0 {
		return fmt.Errorf("early_stopping must be >= 0 (got %d)", c.EarlyStopping)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	return nil
}

// Net returns the classifier configuration.
func (c *Config) Net() net.Config {
	return net.Config{
		InputSize:        c.InputSize,
		HiddenLayersSize: slices.Clone(c.HiddenSizes),
		OutputSize:       c.OutputSize,
		Init:             c.Init,
		LearningRate:     c.LearningRate,
		Seed:             c.Seed,
	}
}
