package application

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mosaic-data/mosaic/internal/domain"
)

// validate is the shared validator instance for configuration structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the top-level configuration: engine settings plus the
// declarative catalog of data interfaces. The catalog must stay
// declarative: worker subprocesses rebuild it from the same file, so an
// interface definition has to be expressible as data.
type Config struct {
	// Engine holds scheduling and isolation settings.
	Engine EngineConfig `yaml:"engine"`

	// Catalog declares the data interfaces available to queries.
	Catalog []InterfaceConfig `yaml:"catalog" validate:"required,min=1,dive"`
}

// EngineConfig holds scheduling and isolation settings.
type EngineConfig struct {
	// MaxWorkers caps the worker pool. Zero means one worker per core;
	// the engine clamps the effective value to the available cores.
	MaxWorkers int `yaml:"max_workers" validate:"min=0"`

	// Isolation picks the worker pool implementation: "process" (default)
	// runs each unit in its own OS process for crash isolation,
	// "goroutine" runs in-process and trades that isolation for less
	// overhead.
	Isolation string `yaml:"isolation" validate:"omitempty,oneof=process goroutine"`
}

// InterfaceConfig declares one data interface: its identity, its column
// contract, where its raw data comes from, and how the payload becomes a
// table.
type InterfaceConfig struct {
	// Name uniquely identifies the interface; queries reference it.
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Type is the interface's data category.
	Type string `yaml:"type" validate:"required,min=1,max=100"`

	// Columns maps promised column names to descriptions. Optional; when
	// present, the produced table is soft-checked against it.
	Columns map[string]string `yaml:"columns"`

	// Source declares where the raw payload is downloaded from.
	Source SourceConfig `yaml:"source" validate:"required"`

	// Format declares how the payload is turned into a table.
	Format FormatConfig `yaml:"format" validate:"required"`
}

// SourceConfig declares a downloader.
type SourceConfig struct {
	// Kind selects the downloader: http, s3, or file.
	Kind string `yaml:"kind" validate:"required,oneof=http s3 file"`

	// URL is the request target for http sources.
	URL string `yaml:"url" validate:"required_if=Kind http,omitempty,url"`

	// Path is the local path for file sources.
	Path string `yaml:"path" validate:"required_if=Kind file"`

	// Endpoint, Bucket, and Key locate an object for s3 sources.
	Endpoint string `yaml:"endpoint" validate:"required_if=Kind s3"`
	Bucket   string `yaml:"bucket" validate:"required_if=Kind s3"`
	Key      string `yaml:"key" validate:"required_if=Kind s3"`

	// AccessKey and SecretKey authenticate s3 sources. Empty credentials
	// mean anonymous access.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL enables TLS for s3 endpoints.
	UseSSL bool `yaml:"use_ssl"`

	// RatePerSecond limits http request rate. Zero disables limiting.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"min=0"`

	// Retries is the number of additional attempts for retryable http
	// failures.
	Retries int `yaml:"retries" validate:"min=0,max=10"`
}

// FormatConfig declares a processor.
type FormatConfig struct {
	// Kind selects the processor: csv, tsv, or json.
	Kind string `yaml:"kind" validate:"required,oneof=csv tsv json"`

	// FoldHeaders applies Unicode case folding and whitespace trimming to
	// column headers, so independently authored sources agree on pivot
	// column names.
	FoldHeaders bool `yaml:"fold_headers"`
}

// LoadConfig reads, decodes, and validates a YAML configuration file.
// Unknown fields are rejected to catch typos early.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Catalog))
	for _, ic := range cfg.Catalog {
		if seen[ic.Name] {
			return nil, fmt.Errorf("config validation failed: duplicate interface name %q", ic.Name)
		}
		seen[ic.Name] = true
	}
	return &cfg, nil
}

// LoadQuery reads, decodes, and validates a YAML query file.
func LoadQuery(path string) (domain.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Query{}, fmt.Errorf("read query %s: %w", path, err)
	}
	return ParseQuery(data)
}

// ParseQuery decodes and validates YAML query bytes. Structural validity
// only; whether the registry can fulfill the query is ValidateQuery's job.
func ParseQuery(data []byte) (domain.Query, error) {
	var q domain.Query
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		return domain.Query{}, fmt.Errorf("decode query: %w", err)
	}
	if err := validate.Struct(&q); err != nil {
		return domain.Query{}, fmt.Errorf("query validation failed: %w", err)
	}
	return q, nil
}
