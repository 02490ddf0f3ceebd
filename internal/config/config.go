package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
	"github.com/ARTIFACTIQ/gt-audit/internal/classes"
)

const (
	DefaultConfidenceThreshold = 0.25
	DefaultIoUThreshold        = 0.5
	DefaultSampleSeed          = 42
	DefaultLogLevel            = "info"
	DefaultConfigFile          = "gt-audit.toml"
	DefaultHistoryFile         = "history.sqlite3"
)

// Config holds the resolved audit configuration. Precedence, lowest to
// highest: built-in defaults, TOML file, GTAUDIT_* environment variables,
// command-line flags (applied by the caller after Load).
type Config struct {
	ConfidenceThreshold      float64
	IoUThreshold             float64
	LocalizationIoUThreshold float64 // 0 disables the localization check
	Workers                  int     // 0 = runtime.NumCPU
	SampleSize               int     // 0 = audit every image
	SampleSeed               int64
	FailOnHigh               *int // nil = gate disabled
	FailOnMedium             *int
	Severities               map[string]string // issue type -> severity overrides
	ClassGroups              []classes.Group
	LogLevel                 string
	LogFile                  string
	HistoryEnabled           bool
	HistoryPath              string
	ConfigPath               string // file actually loaded, empty if none
}

type fileConfig struct {
	ConfidenceThreshold      *float64 `toml:"confidence_threshold"`
	IoUThreshold             *float64 `toml:"iou_threshold"`
	LocalizationIoUThreshold *float64 `toml:"localization_iou_threshold"`
	Workers                  int      `toml:"workers"`
	LogLevel                 string   `toml:"log_level"`
	LogFile                  string   `toml:"log_file"`
	Sampling                 struct {
		Size int    `toml:"size"`
		Seed *int64 `toml:"seed"`
	} `toml:"sampling"`
	Gate struct {
		FailOnHigh   *int `toml:"fail_on_high"`
		FailOnMedium *int `toml:"fail_on_medium"`
	} `toml:"gate"`
	Severities map[string]string `toml:"severities"`
	History    struct {
		Enabled *bool  `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"history"`
	ClassGroups []struct {
		Name    string   `toml:"name"`
		Members []string `toml:"members"`
	} `toml:"class_groups"`
}

// Load builds the configuration from defaults, an optional TOML file, and
// environment overrides. An empty path means "use GTAUDIT_CONFIG or
// gt-audit.toml from the working directory if either exists"; an explicit
// path that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		SampleSeed:          DefaultSampleSeed,
		LogLevel:            DefaultLogLevel,
		HistoryEnabled:      true,
		HistoryPath:         filepath.Join(DefaultAuditDir(), DefaultHistoryFile),
	}

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("GTAUDIT_CONFIG"); env != "" {
			path = env
			explicit = true
		} else if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			if explicit {
				return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("cannot read %s", path), Err: err}
			}
		} else {
			var parsed fileConfig
			if err := toml.Unmarshal(fileData, &parsed); err != nil {
				return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("cannot parse %s", path), Err: err}
			}
			applyFile(cfg, &parsed)
			cfg.ConfigPath = path
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func applyFile(cfg *Config, parsed *fileConfig) {
	if parsed.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *parsed.ConfidenceThreshold
	}
	if parsed.IoUThreshold != nil {
		cfg.IoUThreshold = *parsed.IoUThreshold
	}
	if parsed.LocalizationIoUThreshold != nil {
		cfg.LocalizationIoUThreshold = *parsed.LocalizationIoUThreshold
	}
	if parsed.Workers != 0 {
		cfg.Workers = parsed.Workers
	}
	if parsed.LogLevel != "" {
		cfg.LogLevel = parsed.LogLevel
	}
	if parsed.LogFile != "" {
		cfg.LogFile = parsed.LogFile
	}
	if parsed.Sampling.Size != 0 {
		cfg.SampleSize = parsed.Sampling.Size
	}
	if parsed.Sampling.Seed != nil {
		cfg.SampleSeed = *parsed.Sampling.Seed
	}
	cfg.FailOnHigh = parsed.Gate.FailOnHigh
	cfg.FailOnMedium = parsed.Gate.FailOnMedium
	if len(parsed.Severities) > 0 {
		cfg.Severities = parsed.Severities
	}
	if parsed.History.Enabled != nil {
		cfg.HistoryEnabled = *parsed.History.Enabled
	}
	if parsed.History.Path != "" {
		cfg.HistoryPath = parsed.History.Path
	}
	for _, group := range parsed.ClassGroups {
		cfg.ClassGroups = append(cfg.ClassGroups, classes.Group{
			Name:    group.Name,
			Members: group.Members,
		})
	}
}

func applyEnv(cfg *Config) {
	if level := os.Getenv("GTAUDIT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if logFile := os.Getenv("GTAUDIT_LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
	if workers := os.Getenv("GTAUDIT_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			cfg.Workers = n
		}
	}
	if historyPath := os.Getenv("GTAUDIT_HISTORY_PATH"); historyPath != "" {
		cfg.HistoryPath = historyPath
	}
	if enabled := os.Getenv("GTAUDIT_HISTORY_ENABLED"); enabled != "" {
		cfg.HistoryEnabled = enabled == "true" || enabled == "1"
	}
}

// Validate verifies the configuration is usable. It is called once after
// all sources have been applied; a passing Config is never mutated again.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return &ConfigError{Field: "confidence_threshold", Reason: fmt.Sprintf("must be between 0 and 1, got %g", c.ConfidenceThreshold)}
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return &ConfigError{Field: "iou_threshold", Reason: fmt.Sprintf("must be between 0 and 1, got %g", c.IoUThreshold)}
	}
	if c.LocalizationIoUThreshold != 0 {
		if c.LocalizationIoUThreshold < 0 || c.LocalizationIoUThreshold > 1 {
			return &ConfigError{Field: "localization_iou_threshold", Reason: fmt.Sprintf("must be between 0 and 1, got %g", c.LocalizationIoUThreshold)}
		}
		if c.LocalizationIoUThreshold < c.IoUThreshold {
			return &ConfigError{Field: "localization_iou_threshold", Reason: fmt.Sprintf("must be at least iou_threshold (%g), got %g", c.IoUThreshold, c.LocalizationIoUThreshold)}
		}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Reason: "cannot be negative"}
	}
	if c.SampleSize < 0 {
		return &ConfigError{Field: "sampling.size", Reason: "cannot be negative"}
	}
	if c.FailOnHigh != nil && *c.FailOnHigh < 0 {
		return &ConfigError{Field: "gate.fail_on_high", Reason: "cannot be negative"}
	}
	if c.FailOnMedium != nil && *c.FailOnMedium < 0 {
		return &ConfigError{Field: "gate.fail_on_medium", Reason: "cannot be negative"}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	for issueType, severity := range c.Severities {
		if !audit.IssueType(issueType).Valid() {
			return &ConfigError{Field: "severities", Reason: fmt.Sprintf("unknown issue type %q", issueType)}
		}
		if !audit.Severity(severity).Valid() {
			return &ConfigError{Field: "severities", Reason: fmt.Sprintf("unknown severity %q for %s", severity, issueType)}
		}
	}
	if _, err := classes.NewResolver(c.ClassGroups); err != nil {
		return &ConfigError{Field: "class_groups", Reason: "invalid class groups", Err: err}
	}
	return nil
}

// Resolver builds the class-equivalence resolver from the configured groups.
func (c *Config) Resolver() (*classes.Resolver, error) {
	resolver, err := classes.NewResolver(c.ClassGroups)
	if err != nil {
		return nil, &ConfigError{Field: "class_groups", Reason: "invalid class groups", Err: err}
	}
	return resolver, nil
}

// SeverityTable returns the default severity mapping with any configured
// overrides applied. Call after Validate; unknown keys were rejected there.
func (c *Config) SeverityTable() audit.SeverityTable {
	table := audit.DefaultSeverities()
	for issueType, severity := range c.Severities {
		table[audit.IssueType(issueType)] = audit.Severity(severity)
	}
	return table
}
