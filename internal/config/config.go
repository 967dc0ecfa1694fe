package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"wbbcli/internal/dataprocessing"
	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/exporter"
)

// Config represents the complete application configuration
type Config struct {
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ProcessingConfig holds the resampling run parameters
type ProcessingConfig struct {
	WindowSize       float64    `yaml:"window_size" json:"window_size" envconfig:"WINDOW_SIZE" validate:"gt=0"`
	DesiredFrequency float64    `yaml:"desired_frequency" json:"desired_frequency" envconfig:"DESIRED_FREQUENCY" validate:"gt=0"`
	MaxDepth         int        `yaml:"max_depth" json:"max_depth" envconfig:"MAX_DEPTH" validate:"gte=0"`
	Trim             TrimConfig `yaml:"trim" json:"trim" envconfig:"TRIM"`
	Format           string     `yaml:"format" json:"format" envconfig:"FORMAT" validate:"oneof=csv xlsx edf"`
	ErrorLog         string     `yaml:"error_log" json:"error_log" envconfig:"ERROR_LOG" validate:"required,plainname"`
}

// TrimConfig selects the range kept after resampling
type TrimConfig struct {
	Mode string  `yaml:"mode" json:"mode" envconfig:"MODE" validate:"trimmode"`
	X    float64 `yaml:"x" json:"x" envconfig:"X" validate:"gte=0"`
	Y    float64 `yaml:"y" json:"y" envconfig:"Y" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output    string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath  string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output stdout"`
	AddSource bool   `yaml:"add_source" envconfig:"ADD_SOURCE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceToStdout  bool   `yaml:"trace_to_stdout" envconfig:"TRACE_TO_STDOUT"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Processing: DefaultProcessing(),
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
	}
}

// DefaultProcessing returns the default resampling parameters
func DefaultProcessing() ProcessingConfig {
	return ProcessingConfig{
		WindowSize:       DefaultWindowSize,
		DesiredFrequency: DefaultDesiredFrequency,
		MaxDepth:         DefaultMaxDepth,
		Trim:             TrimConfig{Mode: DefaultTrimMode},
		Format:           DefaultFormat,
		ErrorLog:         DefaultErrorLog,
	}
}

// Load builds the configuration from defaults, then the YAML file, then
// WBB_* environment variables, and validates the result. An empty path
// searches the default locations and is not an error when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewConfigError("config file not accessible", err).WithContext("path", path)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg; keys absent from the file keep
// their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("failed to read config file", err).WithContext("path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewConfigError("failed to parse config file", err).WithContext("path", path)
	}
	return nil
}

// findConfigFile returns the first existing default config location
func findConfigFile() string {
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	return c.Processing.checkFormat()
}

// Validate checks the processing parameters and that the chosen output format
// accepts them.
func (p ProcessingConfig) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	return p.checkFormat()
}

// checkFormat catches combinations the tags cannot express, such as EDF with a
// fractional frequency.
func (p ProcessingConfig) checkFormat() error {
	if _, err := p.Encoder(); err != nil {
		return apperrors.NewConfigError("output format rejects processing parameters", err).
			WithContext("format", p.Format)
	}
	return nil
}

// Encoder returns the output encoder selected by Format
func (p ProcessingConfig) Encoder() (exporter.Encoder, error) {
	return exporter.ForFormat(p.Format, exporter.Options{DesiredFrequency: p.DesiredFrequency})
}

// TrimPolicy converts the trim settings into a dataprocessing policy
func (p ProcessingConfig) TrimPolicy() (dataprocessing.TrimPolicy, error) {
	mode, err := dataprocessing.ParseTrimMode(p.Trim.Mode)
	if err != nil {
		return dataprocessing.TrimPolicy{}, err
	}
	return dataprocessing.NewTrimPolicy(mode, p.Trim.X, p.Trim.Y)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("trimmode", func(fl validator.FieldLevel) bool {
		_, err := dataprocessing.ParseTrimMode(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("plainname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and converts failures into a CONFIG
// error listing every offending field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigError("config validation failed", err)
	}

	fields := make([]apperrors.ValidationError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		msg := describe(fe)
		fields = append(fields, apperrors.ValidationError{Field: field, Message: msg})
		msgs = append(msgs, field+" "+msg)
	}
	return apperrors.NewConfigError("config validation failed: "+strings.Join(msgs, "; "), nil).
		WithContext("fields", fields)
}

// fieldPath drops the root struct name: "Config.processing.window_size" → "processing.window_size"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "required", "required_unless":
		return "is required"
	case "trimmode":
		return fmt.Sprintf("unknown trim mode %q", fe.Value())
	case "plainname":
		return "must be a plain file name"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
