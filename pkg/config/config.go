package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DIAG_EXPERIMENT_NAME
const EnvPrefix = "DIAG"

// Config manages diagnostics configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Experiment identity
	v.SetDefault("experiment.name", "QA")
	v.SetDefault("experiment.model", "ranking_model_11atomTypes")
	v.SetDefault("experiment.dataset", "CASP")

	// Epoch range, inclusive
	v.SetDefault("epochs.start", 0)
	v.SetDefault("epochs.end", 100)

	// Filesystem layout
	v.SetDefault("paths.dataset_root", "/home/lupoglaz/ProteinsDataset")
	v.SetDefault("paths.models_root", "../../models")
	v.SetDefault("manifests.validation", "validation_set.dat")
	v.SetDefault("manifests.training", "training_set.dat")
	v.SetDefault("sampling.epoch", 1)

	// Rendering
	v.SetDefault("plot.size_inches", 20.0)
	v.SetDefault("plot.dpi", 100)

	// Performance parameters
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return nil
}

// BindFlags lets command-line flags override configuration keys.
// bindings maps configuration key -> flag name.
func (c *Config) BindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for key %s", name, key)
		}
		if err := c.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Getters for experiment identity
func (c *Config) ExperimentName() string { return c.v.GetString("experiment.name") }
func (c *Config) ModelName() string      { return c.v.GetString("experiment.model") }
func (c *Config) DatasetName() string    { return c.v.GetString("experiment.dataset") }

func (c *Config) EpochStart() int    { return c.v.GetInt("epochs.start") }
func (c *Config) EpochEnd() int      { return c.v.GetInt("epochs.end") }
func (c *Config) SamplingEpoch() int { return c.v.GetInt("sampling.epoch") }

func (c *Config) DatasetRoot() string        { return c.v.GetString("paths.dataset_root") }
func (c *Config) ModelsRoot() string         { return c.v.GetString("paths.models_root") }
func (c *Config) ValidationManifest() string { return c.v.GetString("manifests.validation") }
func (c *Config) TrainingManifest() string   { return c.v.GetString("manifests.training") }

func (c *Config) PlotSizeInches() float64 { return c.v.GetFloat64("plot.size_inches") }
func (c *Config) PlotDPI() int            { return c.v.GetInt("plot.dpi") }

func (c *Config) NumWorkers() int { return c.v.GetInt("performance.num_workers") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Experiment materialises the experiment layout from the current settings
func (c *Config) Experiment() Experiment {
	return Experiment{
		Name:               c.ExperimentName(),
		Model:              c.ModelName(),
		Dataset:            c.DatasetName(),
		EpochStart:         c.EpochStart(),
		EpochEnd:           c.EpochEnd(),
		DatasetRoot:        c.DatasetRoot(),
		ModelsRoot:         c.ModelsRoot(),
		ValidationManifest: c.ValidationManifest(),
		TrainingManifest:   c.TrainingManifest(),
		SamplingEpoch:      c.SamplingEpoch(),
	}
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "diagnostics").Logger()
}
