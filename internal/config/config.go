package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"salesreport/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Cleaning CleaningConfig `yaml:"cleaning"`
	Reports  []ReportSpec   `yaml:"reports" ignored:"true" validate:"min=1,dive"`
	AdHoc    AdHocReport    `yaml:"-"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// InputConfig locates the raw sales data
type InputConfig struct {
	SalesDataFile string `yaml:"sales_data_file" envconfig:"SALES_DATA_FILE" validate:"required"`
}

// OutputConfig controls where and how the workbook is written
type OutputConfig struct {
	ReportDir  string `yaml:"report_dir" envconfig:"OUTPUT_REPORT_DIR" validate:"required"`
	FilePrefix string `yaml:"file_prefix" envconfig:"REPORT_FILE_PREFIX" validate:"required,excludesall=/\\"`
	// ReportDate pins the date in the file name (YYYY-MM-DD); empty means today.
	ReportDate string `yaml:"report_date" envconfig:"REPORT_DATE" validate:"omitempty,datetime=2006-01-02"`
	ExportCSV  bool   `yaml:"export_csv" envconfig:"EXPORT_CSV"`
}

// CleaningConfig contains the row cleaning rules
type CleaningConfig struct {
	DateColumn         string   `yaml:"date_column" envconfig:"DATE_COLUMN"`
	NumericColumns     []string `yaml:"numeric_columns" envconfig:"NUMERIC_COLUMNS"`
	CategoricalColumns []string `yaml:"categorical_columns" envconfig:"CATEGORICAL_COLUMNS"`
	RequiredColumns    []string `yaml:"required_columns" envconfig:"REQUIRED_COLUMNS"`
	CategoricalFill    string   `yaml:"categorical_fill" envconfig:"CATEGORICAL_FILL"`
	// NumericPolicy decides what happens to unparsable numeric cells.
	NumericPolicy string `yaml:"numeric_policy" envconfig:"NUMERIC_POLICY" validate:"oneof=zero drop"`
	// MeasurePolicy decides how aggregations treat missing or non-numeric measures.
	MeasurePolicy string `yaml:"measure_policy" envconfig:"MEASURE_POLICY" validate:"oneof=zero skip error"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`
	Output   string `yaml:"output" envconfig:"LOG_OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"LOG_FILE" validate:"required_unless=Output console"`
}

// MetricsConfig controls the prometheus textfile written after each run
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" envconfig:"METRICS_TEXTFILE"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"TRACE_ENABLED"`
	Output  string `yaml:"output" envconfig:"TRACE_OUTPUT"`
}

// LoadOptions carries the command-line inputs to Load.
type LoadOptions struct {
	// EnvFile is the dotenv file to load. Empty means DefaultEnvFile, which
	// is silently skipped when it does not exist.
	EnvFile string
	// ConfigFile is an optional YAML file; empty falls back to REPORT_CONFIG_FILE.
	ConfigFile string
	Overrides  Overrides
}

// Overrides are flag values that take precedence over every other source.
type Overrides struct {
	SalesDataFile string
	ReportDir     string
	ReportDate    string
	LogLevel      string
}

// Load builds the configuration from defaults, the YAML file, the
// environment (after loading the dotenv file) and the overrides, in
// increasing order of precedence, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := Default()

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	if configFile != "" {
		if err := cfg.mergeFile(configFile); err != nil {
			return nil, errors.NewConfigError("failed to load config file", err).WithContext("path", configFile)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.NewConfigError("failed to load config from env", err)
	}

	cfg.apply(opts.Overrides)

	if cfg.AdHoc.Enabled() {
		cfg.Reports = []ReportSpec{cfg.AdHoc.Spec()}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile populates the process environment from a dotenv file without
// overriding variables that are already set.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.NewConfigError("failed to load env file", err).WithContext("path", path)
	}
	return nil
}

// mergeFile overlays the YAML file onto the current values. Keys absent from
// the file keep their value; a reports list replaces the defaults wholesale.
func (c *Config) mergeFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, c)
}

func (c *Config) apply(o Overrides) {
	if o.SalesDataFile != "" {
		c.Input.SalesDataFile = o.SalesDataFile
	}
	if o.ReportDir != "" {
		c.Output.ReportDir = o.ReportDir
	}
	if o.ReportDate != "" {
		c.Output.ReportDate = o.ReportDate
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate normalizes the report list and checks the whole configuration.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Cleaning.NumericPolicy = strings.ToLower(strings.TrimSpace(c.Cleaning.NumericPolicy))
	c.Cleaning.MeasurePolicy = strings.ToLower(strings.TrimSpace(c.Cleaning.MeasurePolicy))
	if c.Cleaning.CategoricalFill == "" {
		c.Cleaning.CategoricalFill = DefaultCategoricalFill
	}
	for i := range c.Reports {
		c.Reports[i].normalize()
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			return errors.NewConfigError(describe(verrs), nil)
		}
		return errors.NewConfigError("config validation failed", err)
	}

	names := make(map[string]bool, len(c.Reports))
	for _, r := range c.Reports {
		if err := r.check(); err != nil {
			return errors.NewConfigError("invalid report definition", err)
		}
		key := strings.ToLower(r.Name)
		if names[key] {
			return errors.NewConfigError(fmt.Sprintf("duplicate report name %q", r.Name), nil)
		}
		names[key] = true
	}
	return nil
}

// envNames maps struct namespaces to the variable a user would set.
var envNames = map[string]string{
	"Config.Input.SalesDataFile": "SALES_DATA_FILE",
	"Config.Output.ReportDir":    "OUTPUT_REPORT_DIR",
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if name, ok := envNames[field]; ok && fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s is required", name))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %q validation (value %v)", field, fe.Tag(), fe.Value()))
	}
	return strings.Join(msgs, "; ")
}

// ReportTime returns the date stamped into the report file name.
func (c *Config) ReportTime(now time.Time) time.Time {
	if c.Output.ReportDate != "" {
		if t, err := time.Parse(DateLayout, c.Output.ReportDate); err == nil {
			return t
		}
	}
	return now
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			FilePrefix: DefaultFilePrefix,
		},
		Cleaning: CleaningConfig{
			DateColumn:         "Date",
			NumericColumns:     []string{"Quantity", "UnitPrice", "TotalPrice"},
			CategoricalColumns: []string{"ProductName", "Category", "Region", "SalespersonID"},
			CategoricalFill:    DefaultCategoricalFill,
			NumericPolicy:      "zero",
			MeasurePolicy:      "zero",
		},
		Reports: DefaultReports(),
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "both",
			FilePath: DefaultLogFile,
		},
		Tracing: TracingConfig{
			Output: "stdout",
		},
	}
}
