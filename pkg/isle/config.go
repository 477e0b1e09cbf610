package isle

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// simulationConfig holds the configuration for a Simulation loaded from environment variables.
type simulationConfig struct {
	// Name identifies the simulation in logs and spans.
	Name string `env:"ISLE_NAME" envDefault:"isle"`

	// Log level ("trace", "debug", "info", "warn", "error", "disabled").
	LogLevel string `env:"ISLE_LOG_LEVEL" envDefault:"info"`

	// LogJSON switches the logger from console output to JSON lines.
	LogJSON bool `env:"ISLE_LOG_JSON" envDefault:"false"`

	// ColumnCapacity is the initial capacity of every component column.
	ColumnCapacity int `env:"ISLE_COLUMN_CAPACITY" envDefault:"16"`
}

// loadSimulationConfig loads the simulation configuration from environment variables.
func loadSimulationConfig() (simulationConfig, error) {
	cfg, err := env.ParseAs[simulationConfig]()
	if err != nil {
		return cfg, eris.Wrap(err, "failed to parse simulation config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate simulation config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *simulationConfig) validate() error {
	if cfg.Name == "" {
		return eris.New("name cannot be empty")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.ColumnCapacity <= 0 {
		return eris.Errorf("column capacity must be positive, got %d", cfg.ColumnCapacity)
	}
	return nil
}

// applyToOptions applies the configuration values to the given Options.
func (cfg *simulationConfig) applyToOptions(opt *Options) {
	opt.Name = cfg.Name
	opt.LogLevel = cfg.LogLevel
	opt.LogJSON = cfg.LogJSON
	opt.ColumnCapacity = cfg.ColumnCapacity
}

// Options configures a Simulation. Zero values leave the environment configuration in place.
type Options struct {
	Name           string          // Name of the simulation, used for logs and the tracer
	LogLevel       string          // Minimum log level
	LogJSON        bool            // Emit JSON logs instead of console output
	ColumnCapacity int             // Initial capacity of component columns
	LogOutput      io.Writer       // Log destination, defaults to stdout
	Logger         *zerolog.Logger // Prebuilt logger, overrides LogLevel, LogJSON and LogOutput
	Tracer         trace.Tracer    // Tracer for step and commit spans, defaults to a noop tracer
}

// Option mutates Options before the Simulation is built.
type Option func(*Options)

// WithName sets the simulation name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithLogLevel sets the minimum log level.
func WithLogLevel(level string) Option {
	return func(o *Options) { o.LogLevel = level }
}

// WithLogJSON switches between JSON and console logs.
func WithLogJSON(enabled bool) Option {
	return func(o *Options) { o.LogJSON = enabled }
}

// WithLogOutput redirects log output.
func WithLogOutput(w io.Writer) Option {
	return func(o *Options) { o.LogOutput = w }
}

// WithLogger uses log as is.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) { o.Logger = &log }
}

// WithColumnCapacity sets the initial capacity of component columns.
func WithColumnCapacity(capacity int) Option {
	return func(o *Options) { o.ColumnCapacity = capacity }
}

// WithTracer sets the tracer used for step and commit spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Options) { o.Tracer = tracer }
}

func newDefaultOptions() Options {
	return Options{
		Name:           "isle",
		LogLevel:       zerolog.LevelInfoValue,
		ColumnCapacity: 16,
		LogOutput:      os.Stdout,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.Name != "" {
		opt.Name = newOpt.Name
	}
	if newOpt.LogLevel != "" {
		opt.LogLevel = newOpt.LogLevel
	}
	if newOpt.LogJSON {
		opt.LogJSON = true
	}
	if newOpt.ColumnCapacity != 0 {
		opt.ColumnCapacity = newOpt.ColumnCapacity
	}
	if newOpt.LogOutput != nil {
		opt.LogOutput = newOpt.LogOutput
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Tracer != nil {
		opt.Tracer = newOpt.Tracer
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.Name == "" {
		return eris.New("name cannot be empty")
	}
	if _, err := parseLevel(opt.LogLevel); err != nil {
		return err
	}
	if opt.ColumnCapacity <= 0 {
		return eris.Errorf("column capacity must be positive, got %d", opt.ColumnCapacity)
	}
	return nil
}

// newLogger builds the simulation logger from validated options.
func (opt *Options) newLogger() zerolog.Logger {
	if opt.Logger != nil {
		return opt.Logger.With().Str("simulation", opt.Name).Logger()
	}

	level, err := parseLevel(opt.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	writer := opt.LogOutput
	if !opt.LogJSON {
		writer = zerolog.ConsoleWriter{
			Out:        opt.LogOutput,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("simulation", opt.Name).
		Logger()
}

func parseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, eris.Errorf("invalid log level: %q", s)
	}
	return level, nil
}
