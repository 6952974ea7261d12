// config.go: settings struct and functions to load and save the engine settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for the application log file.
type LogConfig struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSize    int    // maximum log file size in megabytes
	MaxBackups int    // number of rotated files to keep
	MaxAge     int    // days to retain rotated files
}

// MainSettings contains process-level settings.
type MainSettings struct {
	Name string    // instance name, used in logs
	Log  LogConfig // log file settings
}

// MonitorSettings contains settings for the fast-path quick monitor.
type MonitorSettings struct {
	Interval    time.Duration // tick interval for the quick check
	WindowSize  int           // number of recent chunks joined for a quick check
	CacheTTL    time.Duration // quick-score memoization TTL, 0 disables
	ScoreErrLog bool          // true to log every scorer failure instead of sampling
}

// AnalysisSettings contains settings for comprehensive analysis scheduling.
type AnalysisSettings struct {
	Interval      time.Duration // per-session comprehensive analysis interval
	PollInterval  time.Duration // scheduler wake-up interval
	MaxConcurrent int           // upper bound on in-flight comprehensive analyses
	FastPathSize  int           // buffer length that nudges the scheduler
	BufferSize    int           // per-session conversation buffer capacity
	StopGrace     time.Duration // bounded wait for session loops on stop
}

// DetectionSettings contains settings for alerting and threshold adaptation.
type DetectionSettings struct {
	WarningThreshold float64 // initial warning threshold
	ThresholdMin     float64 // lower clamp for the adaptive threshold
	ThresholdMax     float64 // upper clamp for the adaptive threshold
	LearningRate     float64 // feedback correction multiplier
	MinAdjustment    float64 // adjustments at or below this are dropped
}

// RealtimeSettings contains all engine runtime settings.
type RealtimeSettings struct {
	Monitor   MonitorSettings   // quick monitor settings
	Analysis  AnalysisSettings  // analysis scheduler settings
	Detection DetectionSettings // detection and adaptation settings
	QueueSize int               // memory update queue capacity
}

// SQLiteSettings contains SQLite database settings.
type SQLiteSettings struct {
	Enabled bool   // true to persist feedback and alerts
	Path    string // path to the SQLite database file
}

// OutputSettings contains settings for the persistence collaborator.
type OutputSettings struct {
	SQLite SQLiteSettings
}

// MetricsSettings contains settings for the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   // true to expose /metrics
	Listen  string // listen address for the metrics endpoint
}

// Settings is the root settings struct.
type Settings struct {
	Debug    bool // true to enable debug logging
	Main     MainSettings
	Realtime RealtimeSettings
	Output   OutputSettings
	Metrics  MetricsSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a Settings struct, applying defaults
// for anything the config file does not set.
func Load() (*Settings, error) {
	setDefaultConfig()

	if err := readConfig(); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// Setting returns the shared settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// readConfig locates and reads the YAML config file. A missing file is not
// an error; defaults apply.
func readConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// GetDefaultConfigPaths returns the config file search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "fairlens"),
		"/etc/fairlens",
	}, nil
}

// SaveSettings writes the active settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings to %s: %w", path, err)
	}
	return nil
}
