package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	ContainerRuntime string          `mapstructure:"container_runtime"`
	Scheduler        SchedulerConfig `mapstructure:"scheduler"`
	Maintenance      MaintConfig     `mapstructure:"maintenance"`
	Restore          RestoreConfig   `mapstructure:"restore"`
	Records          RecordsConfig   `mapstructure:"records"`
	Retry            RetryConfig     `mapstructure:"retry"`
	Metrics          MetricsConfig   `mapstructure:"metrics"`
	Apprise          AppriseConfig   `mapstructure:"apprise"`
	Log              LogConfig       `mapstructure:"log"`
	Jobs             []JobConfig     `mapstructure:"jobs"`
}

// SchedulerConfig holds scheduler timing policy.
type SchedulerConfig struct {
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	DelayNotifyThreshold time.Duration `mapstructure:"delay_notify_threshold"`
}

// MaintConfig holds repository maintenance policy.
type MaintConfig struct {
	MaxAge   time.Duration `mapstructure:"max_age"`
	MaxRuns  int           `mapstructure:"max_runs"`
	KeepLast int           `mapstructure:"keep_last"`
}

// RestoreConfig holds restore resolution settings.
type RestoreConfig struct {
	StagingRoot string `mapstructure:"staging_root"`
}

// RecordsConfig holds execution-record sink settings.
type RecordsConfig struct {
	Path      string `mapstructure:"path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// RetryConfig holds HTTP retry configuration.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// AppriseConfig holds Apprise notification configuration.
type AppriseConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	URL     string      `mapstructure:"url"`
	Key     string      `mapstructure:"key"`
	Notify  NotifyLevel `mapstructure:"notify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads configuration from all sources and returns the merged
// config. Precedence (highest to lowest): CLI flags > environment >
// config file > defaults.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Default paths depend on per-OS state directories, so they resolve
	// after loading.
	if cfg.Log.Output == "" {
		if logPath, err := DefaultLogPath(); err == nil {
			cfg.Log.Output = logPath
		}
	}
	if cfg.Records.Path == "" {
		if recPath, err := DefaultRecordsPath(); err == nil {
			cfg.Records.Path = recPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("container_runtime", DefaultContainerRuntime)

	l.v.SetDefault("scheduler.tick_interval", DefaultTickInterval)
	l.v.SetDefault("scheduler.poll_interval", DefaultPollInterval)
	l.v.SetDefault("scheduler.delay_notify_threshold", DefaultDelayNotifyThreshold)

	l.v.SetDefault("maintenance.max_age", DefaultMaintenanceMaxAge)
	l.v.SetDefault("maintenance.max_runs", DefaultMaintenanceMaxRuns)
	l.v.SetDefault("maintenance.keep_last", DefaultKeepLast)

	l.v.SetDefault("restore.staging_root", DefaultStagingRoot)

	l.v.SetDefault("records.path", "")
	l.v.SetDefault("records.max_size_mb", DefaultLogMaxSizeMB)

	l.v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	l.v.SetDefault("retry.initial_delay", DefaultRetryInitialDelay)
	l.v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	l.v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	l.v.SetDefault("metrics.pushgateway_url", DefaultMetricsPushgatewayURL)

	l.v.SetDefault("apprise.enabled", DefaultAppriseEnabled)
	l.v.SetDefault("apprise.url", DefaultAppriseURL)
	l.v.SetDefault("apprise.key", DefaultAppriseKey)
	l.v.SetDefault("apprise.notify", string(DefaultAppriseNotify))

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		configDir, err := DefaultConfigDir()
		if err != nil {
			// Can't determine config dir, proceed without file config.
			return nil
		}
		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(configDir)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - use defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// WriteExampleConfig writes an example config file to the given path.
func WriteExampleConfig(path string) error {
	content := `# highball configuration

# Container runtime used for container-wrapped remote restic runs
container_runtime = "docker"

[scheduler]
# How often fire times are evaluated
tick_interval = "15s"
# How long a conflict-deferred job waits before re-checking claims
poll_interval = "5m"
# Cumulative delay after which a single warning notification is sent
delay_notify_threshold = "30m"

[maintenance]
# Auto maintenance triggers: age of last maintenance, or backup runs since
max_age = "168h"
max_runs = 30
# Retention for restic forget --keep-last
keep_last = 30

[restore]
# Where staged restores land
staging_root = "/var/lib/highball/restore"

# HTTP retry configuration
[retry]
max_attempts = 3
initial_delay = "5s"
max_delay = "30s"

# Prometheus metrics (optional, disabled by default)
[metrics]
enabled = false
pushgateway_url = "http://pushgateway:9091"

# Apprise notifications (optional, disabled by default)
[apprise]
enabled = false
url = "http://localhost:8000"
key = "highball"
# Notification level: "error", "warning", "always"
notify = "error"

# Logging configuration
[log]
# Level: debug, info, warn, error
level = "info"
# Output file path (defaults to highball.log in the state directory)
# output = ""
# Max log file size before rotation (MB)
max_size_mb = 10

# Jobs. Secrets are never written here; set RESTIC_PASSWORD etc. in the
# environment, or job-scoped as HIGHBALL_SECRET_<JOB>_<NAME>.
[[jobs]]
name = "documents"
provider = "restic"
schedule = "0 2 * * *"
enabled = true
avoid_conflicts = true

[[jobs.paths]]
path = "/home/user/documents"
excludes = ["*.tmp"]

[jobs.restic]
# Maintenance policy: "auto", "user" (needs maintenance_schedule), "off"
maintenance = "auto"

[jobs.restic.repository]
kind = "local"
path = "/srv/restic/documents"

[[jobs]]
name = "photos"
provider = "rsync"
schedule = "30 2 * * *"
enabled = true
avoid_conflicts = true

[jobs.source]
kind = "local"

[jobs.dest]
kind = "ssh"
host = "nas.local"
user = "backup"

[[jobs.paths]]
path = "/home/user/photos"

[jobs.rsync]
dest_path = "/backup/photos"
archive = true
delete = true
`
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Scheduler.TickInterval < time.Second {
		return fmt.Errorf("scheduler.tick_interval must be at least 1s, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.PollInterval < c.Scheduler.TickInterval {
		return fmt.Errorf("scheduler.poll_interval must be >= scheduler.tick_interval")
	}
	if c.Scheduler.DelayNotifyThreshold < 0 {
		return fmt.Errorf("scheduler.delay_notify_threshold cannot be negative")
	}

	if c.Maintenance.MaxRuns < 1 {
		return fmt.Errorf("maintenance.max_runs must be at least 1")
	}
	if c.Maintenance.KeepLast < 1 {
		return fmt.Errorf("maintenance.keep_last must be at least 1")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay cannot be negative")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}

	if c.Metrics.Enabled && c.Metrics.PushgatewayURL == "" {
		return fmt.Errorf("metrics.pushgateway_url is required when metrics is enabled")
	}

	if c.Apprise.Enabled {
		if c.Apprise.URL == "" {
			return fmt.Errorf("apprise.url is required when apprise is enabled")
		}
		if c.Apprise.Key == "" {
			return fmt.Errorf("apprise.key is required when apprise is enabled")
		}
		if !c.Apprise.Notify.IsValid() {
			return fmt.Errorf("apprise.notify must be one of: error, warning, always")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("log.max_size_mb must be at least 1")
	}

	names := make(map[string]bool, len(c.Jobs))
	for i := range c.Jobs {
		if err := c.Jobs[i].Validate(); err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if names[c.Jobs[i].Name] {
			return fmt.Errorf("jobs[%d]: duplicate job name %q", i, c.Jobs[i].Name)
		}
		names[c.Jobs[i].Name] = true
	}

	return nil
}
