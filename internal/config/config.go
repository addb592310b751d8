package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "config.yml"

// EnvPrefix prefixes environment overrides, e.g. AHI_SERVER_SECRET.
const EnvPrefix = "AHI"

// SpoofConfig holds the masking rules.
type SpoofConfig struct {
	AllowBypass bool `json:"allowBypass" mapstructure:"allowBypass"`
	PlayersOnly bool `json:"playersOnly" mapstructure:"playersOnly"`

	IgnoreVehicles         bool `json:"ignoreVehicles" mapstructure:"ignoreVehicles"`
	IgnoreWolves           bool `json:"ignoreWolves" mapstructure:"ignoreWolves"`
	IgnoreTamedWolves      bool `json:"ignoreTamedWolves" mapstructure:"ignoreTamedWolves"`
	IgnoreOwnedWolves      bool `json:"ignoreOwnedWolves" mapstructure:"ignoreOwnedWolves"`
	IgnoreIronGolems       bool `json:"ignoreIronGolems" mapstructure:"ignoreIronGolems"`
	GradualIronGolemHealth bool `json:"gradualIronGolemHealth" mapstructure:"gradualIronGolemHealth"`

	Health     bool `json:"health" mapstructure:"health"`
	AirTicks   bool `json:"airTicks" mapstructure:"airTicks"`
	Absorption bool `json:"absorption" mapstructure:"absorption"`
	XP         bool `json:"xp" mapstructure:"xp"`
}

// ServerConfig holds the bridge listener settings.
type ServerConfig struct {
	Address string `json:"address" mapstructure:"address"`
	Secret  string `json:"secret" mapstructure:"secret"`
	// Version is the game version of the proxied server, e.g. "1.20.4".
	Version string `json:"version" mapstructure:"version"`
}

// DatabaseConfig holds the permission store connection.
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Driver   string `json:"driver" mapstructure:"driver"`
	Path     string `json:"path" mapstructure:"path"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// PermissionConfig holds static grants and the optional database store.
type PermissionConfig struct {
	// Grants maps a player uuid to permission names.
	Grants   map[string][]string `json:"grants" mapstructure:"grants"`
	CacheTTL time.Duration       `json:"cacheTTL" mapstructure:"cacheTTL"`
	Database DatabaseConfig      `json:"database" mapstructure:"database"`
}

// WorkerConfig sizes the async pool.
type WorkerConfig struct {
	Workers   int `json:"workers" mapstructure:"workers"`
	QueueSize int `json:"queueSize" mapstructure:"queueSize"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds the status reporter settings.
type InfluxConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Host     string        `json:"host" mapstructure:"host"`
	Port     string        `json:"port" mapstructure:"port"`
	Protocol string        `json:"protocol" mapstructure:"protocol"`
	Token    string        `json:"token" mapstructure:"token"`
	Org      string        `json:"org" mapstructure:"org"`
	Bucket   string        `json:"bucket" mapstructure:"bucket"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// URL returns the server url of the InfluxDB instance.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// UpdateConfig holds the release checker settings.
type UpdateConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
}

// Load reads configuration from the YAML file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(strings.TrimSuffix(FileName, ".yml"))
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yaml")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("debug.packetTrace", false)

	viper.SetDefault("server.address", ":25580")
	viper.SetDefault("server.secret", "")
	viper.SetDefault("server.version", "1.21")

	viper.SetDefault("spoof.allowBypass", false)
	viper.SetDefault("spoof.playersOnly", false)
	viper.SetDefault("spoof.ignoreVehicles", true)
	viper.SetDefault("spoof.ignoreWolves", true)
	viper.SetDefault("spoof.ignoreTamedWolves", false)
	viper.SetDefault("spoof.ignoreOwnedWolves", true)
	viper.SetDefault("spoof.ignoreIronGolems", true)
	viper.SetDefault("spoof.gradualIronGolemHealth", true)
	viper.SetDefault("spoof.health", true)
	viper.SetDefault("spoof.airTicks", true)
	viper.SetDefault("spoof.absorption", true)
	viper.SetDefault("spoof.xp", true)

	viper.SetDefault("permission.cacheTTL", "30s")
	viper.SetDefault("permission.database.enabled", false)
	viper.SetDefault("permission.database.driver", "sqlite")
	viper.SetDefault("permission.database.path", "./permissions.db")
	viper.SetDefault("permission.database.host", "localhost")
	viper.SetDefault("permission.database.port", "5432")
	viper.SetDefault("permission.database.username", "postgres")
	viper.SetDefault("permission.database.password", "postgres")
	viper.SetDefault("permission.database.database", "antihealthindicator")

	viper.SetDefault("worker.workers", 2)
	viper.SetDefault("worker.queueSize", 1024)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "antihealthindicator")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "antihealthindicator")
	viper.SetDefault("influx.bucket", "ahi-status")
	viper.SetDefault("influx.interval", "30s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("update.enabled", true)
	viper.SetDefault("update.url", "https://api.github.com/repos/Bram1903/AntiHealthIndicator/releases/latest")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSpoofConfig returns the masking rules.
func GetSpoofConfig() SpoofConfig {
	return SpoofConfig{
		AllowBypass:            viper.GetBool("spoof.allowBypass"),
		PlayersOnly:            viper.GetBool("spoof.playersOnly"),
		IgnoreVehicles:         viper.GetBool("spoof.ignoreVehicles"),
		IgnoreWolves:           viper.GetBool("spoof.ignoreWolves"),
		IgnoreTamedWolves:      viper.GetBool("spoof.ignoreTamedWolves"),
		IgnoreOwnedWolves:      viper.GetBool("spoof.ignoreOwnedWolves"),
		IgnoreIronGolems:       viper.GetBool("spoof.ignoreIronGolems"),
		GradualIronGolemHealth: viper.GetBool("spoof.gradualIronGolemHealth"),
		Health:                 viper.GetBool("spoof.health"),
		AirTicks:               viper.GetBool("spoof.airTicks"),
		Absorption:             viper.GetBool("spoof.absorption"),
		XP:                     viper.GetBool("spoof.xp"),
	}
}

// GetServerConfig returns the bridge listener settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address: viper.GetString("server.address"),
		Secret:  viper.GetString("server.secret"),
		Version: viper.GetString("server.version"),
	}
}

// GetPermissionConfig returns static grants and the store settings.
func GetPermissionConfig() PermissionConfig {
	return PermissionConfig{
		Grants:   viper.GetStringMapStringSlice("permission.grants"),
		CacheTTL: viper.GetDuration("permission.cacheTTL"),
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("permission.database.enabled"),
			Driver:   viper.GetString("permission.database.driver"),
			Path:     viper.GetString("permission.database.path"),
			Host:     viper.GetString("permission.database.host"),
			Port:     viper.GetString("permission.database.port"),
			Username: viper.GetString("permission.database.username"),
			Password: viper.GetString("permission.database.password"),
			Database: viper.GetString("permission.database.database"),
		},
	}
}

// GetWorkerConfig returns the async pool size.
func GetWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Workers:   viper.GetInt("worker.workers"),
		QueueSize: viper.GetInt("worker.queueSize"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the status reporter configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Interval: viper.GetDuration("influx.interval"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetUpdateConfig returns the release checker configuration.
func GetUpdateConfig() UpdateConfig {
	return UpdateConfig{
		Enabled: viper.GetBool("update.enabled"),
		URL:     viper.GetString("update.url"),
	}
}
