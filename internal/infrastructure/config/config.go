package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for labctl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Devices  DevicesConfig  `yaml:"devices"`
	Database DatabaseConfig `yaml:"database"`
	Locking  LockingConfig  `yaml:"locking"`
	LAVA     LAVAConfig     `yaml:"lava"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DevicesConfig points at the directory of per-device configuration files.
type DevicesConfig struct {
	ConfigDir string `yaml:"config_dir"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LockingConfig contains advisory lock settings.
type LockingConfig struct {
	// Dir holds the lock files (one per device plus sync.lock).
	Dir string `yaml:"dir"`

	// MaxAttempts is the default number of non-blocking attempts per acquisition.
	MaxAttempts int `yaml:"max_attempts"`

	// RetryInterval is the pause between attempts, in milliseconds.
	RetryInterval int `yaml:"retry_interval"`
}

// LAVAConfig contains the lab-control XML-RPC server settings.
// Leaving Server empty disables the connection check at startup.
type LAVAConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`

	// InsecureSkipVerify disables TLS certificate verification for https servers.
	// Defaults to true to keep compatibility with self-signed lab servers.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// Timeout bounds each XML-RPC request, in seconds.
	Timeout int `yaml:"timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LABCTL_SECTION_KEY
// For example: LABCTL_DATABASE_PATH, LABCTL_LAVA_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Devices: DevicesConfig{
			ConfigDir: "./devices",
		},
		Database: DatabaseConfig{
			Path:        "./data/remote-control.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Locking: LockingConfig{
			Dir:           "./data/locks",
			MaxAttempts:   5,
			RetryInterval: 100,
		},
		LAVA: LAVAConfig{
			InsecureSkipVerify: true,
			Timeout:            30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "labctl",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LABCTL_DEVICES_DIR", &cfg.Devices.ConfigDir},
		{"LABCTL_DATABASE_PATH", &cfg.Database.Path},
		{"LABCTL_LOCK_DIR", &cfg.Locking.Dir},
		{"LABCTL_LAVA_SERVER", &cfg.LAVA.Server},
		{"LABCTL_LAVA_USERNAME", &cfg.LAVA.Username},
		{"LABCTL_LAVA_TOKEN", &cfg.LAVA.Token},
		{"LABCTL_MQTT_HOST", &cfg.MQTT.Broker.Host},
		{"LABCTL_MQTT_USERNAME", &cfg.MQTT.Auth.Username},
		{"LABCTL_MQTT_PASSWORD", &cfg.MQTT.Auth.Password},
		{"LABCTL_INFLUXDB_TOKEN", &cfg.InfluxDB.Token},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Validate checks the configuration for errors.
//
// The LAVA server URL itself is validated by the lava package when the
// connection is built, so only its presence-related rules are checked here.
func (c *Config) Validate() error {
	var errs []string

	if c.Devices.ConfigDir == "" {
		errs = append(errs, "devices.config_dir is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.Locking.Dir == "" {
		errs = append(errs, "locking.dir is required")
	}
	if c.Locking.MaxAttempts < 1 {
		errs = append(errs, "locking.max_attempts must be at least 1")
	}
	if c.Locking.RetryInterval < 0 {
		errs = append(errs, "locking.retry_interval must not be negative")
	}

	if c.LAVA.Server != "" {
		if _, err := url.Parse(c.LAVA.Server); err != nil {
			errs = append(errs, "lava.server is not a valid URL")
		}
		if c.LAVA.Username == "" || c.LAVA.Token == "" {
			errs = append(errs, "lava.username and lava.token are required when lava.server is set (set LABCTL_LAVA_TOKEN)")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LockRetryInterval returns the lock retry interval as a Duration.
func (c *Config) LockRetryInterval() time.Duration {
	return time.Duration(c.Locking.RetryInterval) * time.Millisecond
}

// LAVATimeout returns the XML-RPC request timeout as a Duration.
func (c *Config) LAVATimeout() time.Duration {
	return time.Duration(c.LAVA.Timeout) * time.Second
}
