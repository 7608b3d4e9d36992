// Package config provides configuration for a query run.
//
// Settings are layered: DefaultConfig, then an optional YAML or JSON file,
// then TPCHQ5_* environment variables, then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
)

// Storage types.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the configuration for one query run.
type Config struct {
	// Query holds the six mandatory query parameters
	Query QueryConfig `json:"query" yaml:"query"`

	// Storage selects where table files are read from
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// WorkDir receives tables downloaded from object storage
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// DownloadConcurrency bounds parallel table downloads
	DownloadConcurrency int `json:"download_concurrency" yaml:"download_concurrency" validate:"min=1"`

	// Verify cross-checks the result against the SQLite reference executor
	Verify bool `json:"verify" yaml:"verify"`

	// MetricsPath is an optional Prometheus textfile written after the run
	MetricsPath string `json:"metrics_path" yaml:"metrics_path"`

	// ResultObject is an optional storage key the result file is uploaded to
	ResultObject string `json:"result_object" yaml:"result_object"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// QueryConfig holds the query parameters.
type QueryConfig struct {
	// RegionName is matched exactly against r_name
	RegionName string `json:"r_name" yaml:"r_name" validate:"required"`

	// StartDate is the inclusive lower bound on o_orderdate
	StartDate string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`

	// EndDate is the exclusive upper bound on o_orderdate
	EndDate string `json:"end_date" yaml:"end_date" validate:"required,datetime=2006-01-02"`

	// Threads is the number of scan workers
	Threads int `json:"threads" yaml:"threads" validate:"required,min=1"`

	// TablePath is the table directory, or the key prefix for s3 storage
	TablePath string `json:"table_path" yaml:"table_path" validate:"required"`

	// ResultPath is the local result file
	ResultPath string `json:"result_path" yaml:"result_path" validate:"required"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type" validate:"oneof=local s3"`

	// Path is the local storage root results are published under (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration. The query parameters
// have no defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: StorageLocal,
		},
		DownloadConcurrency: 6,
		LogLevel:            "info",
	}
}

// Resolve fills derived defaults.
func (c *Config) Resolve() {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "tpchq5")
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their flag/yaml name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate validates the configuration. Failures are CONFIG errors; a
// missing query parameter uses CodeMissingArgument.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return engerrors.Wrap(engerrors.ErrCategoryConfig, engerrors.CodeInvalidArgument, "invalid configuration", err)
		}
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return engerrors.NewConfigError(engerrors.CodeMissingArgument,
				fmt.Sprintf("--%s is required", fe.Field()))
		}
		return engerrors.NewConfigError(engerrors.CodeInvalidArgument,
			fmt.Sprintf("invalid --%s %q (%s)", fe.Field(), fmt.Sprint(fe.Value()), describe(fe)))
	}

	if c.Storage.Type == StorageS3 && c.Storage.S3.Bucket == "" {
		return engerrors.NewConfigError(engerrors.CodeMissingArgument,
			"s3.bucket is required when storage type is s3")
	}

	if c.ResultObject != "" && c.Storage.Type == StorageLocal && c.Storage.Path == "" {
		return engerrors.NewConfigError(engerrors.CodeMissingArgument,
			"storage.path is required to publish results to local storage")
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param()
	case "datetime":
		return "must be YYYY-MM-DD"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return fe.Tag()
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TPCHQ5_ prefix.
func LoadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"TPCHQ5_R_NAME":        &cfg.Query.RegionName,
		"TPCHQ5_START_DATE":    &cfg.Query.StartDate,
		"TPCHQ5_END_DATE":      &cfg.Query.EndDate,
		"TPCHQ5_TABLE_PATH":    &cfg.Query.TablePath,
		"TPCHQ5_RESULT_PATH":   &cfg.Query.ResultPath,
		"TPCHQ5_STORAGE_TYPE":  &cfg.Storage.Type,
		"TPCHQ5_STORAGE_PATH":  &cfg.Storage.Path,
		"TPCHQ5_S3_BUCKET":     &cfg.Storage.S3.Bucket,
		"TPCHQ5_S3_REGION":     &cfg.Storage.S3.Region,
		"TPCHQ5_S3_ENDPOINT":   &cfg.Storage.S3.Endpoint,
		"TPCHQ5_WORK_DIR":      &cfg.WorkDir,
		"TPCHQ5_METRICS_PATH":  &cfg.MetricsPath,
		"TPCHQ5_RESULT_OBJECT": &cfg.ResultObject,
		"TPCHQ5_LOG_LEVEL":     &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TPCHQ5_THREADS":              &cfg.Query.Threads,
		"TPCHQ5_DOWNLOAD_CONCURRENCY": &cfg.DownloadConcurrency,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return engerrors.Wrap(engerrors.ErrCategoryConfig, engerrors.CodeInvalidArgument,
					fmt.Sprintf("invalid %s", key), err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"TPCHQ5_VERIFY":            &cfg.Verify,
		"TPCHQ5_S3_USE_PATH_STYLE": &cfg.Storage.S3.UsePathStyle,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	return nil
}

// EnsureDirectories creates the work directory and the metrics directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.WorkDir}
	if c.MetricsPath != "" {
		dirs = append(dirs, filepath.Dir(c.MetricsPath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
