// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                   `mapstructure:"app"`
	API           APIConfig                   `mapstructure:"api"`
	Drafts        DraftConfig                 `mapstructure:"drafts"`
	Database      DatabaseConfig              `mapstructure:"database"`
	Camunda       CamundaConfig               `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig     `mapstructure:"workers"`
	Inspections   map[string]InspectionConfig `mapstructure:"inspections"`
	Report        ReportConfig                `mapstructure:"report"`
	Notifications NotificationConfig          `mapstructure:"notifications"`
	Logging       LoggingConfig               `mapstructure:"logging"`
	Metrics       MetricsConfig               `mapstructure:"metrics"`
	Tracing       TracingConfig               `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig points at the external records API (one collection per inspection type).
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds, 0 = client default
	UserID  int    `mapstructure:"user_id"` // optional, attached to every record
}

// DraftConfig selects the draft store backend.
type DraftConfig struct {
	Backend       string `mapstructure:"backend"` // sqlite | redis | postgres | memory
	SQLitePath    string `mapstructure:"sqlite_path"`
	SchemaVersion int    `mapstructure:"schema_version"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	ProcessID      string `mapstructure:"process_id"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every report worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// InspectionConfig overrides a built-in inspection type.
type InspectionConfig struct {
	Enabled  *bool  `mapstructure:"enabled"`
	Cap      int    `mapstructure:"cap"`
	Resource string `mapstructure:"resource"`
}

// ReportConfig controls what happens after a fully saved session.
type ReportConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	ArchiveIndex string `mapstructure:"archive_index"`
	Archive      bool   `mapstructure:"archive"`
	RegistryPath string `mapstructure:"registry_path"`
}

// NotificationConfig holds settings for the notify-inspection-result worker.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"` // always copied on the summary
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
