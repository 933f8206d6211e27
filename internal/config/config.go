package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
)

// Config is the full service configuration, loaded from an optional YAML file
// with environment-variable overrides (prefix WORKFLOW_, e.g.
// WORKFLOW_DATABASE_HOST).
type Config struct {
	Service   ServiceConfig    `mapstructure:"service"`
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	NATS      NATSConfig       `mapstructure:"nats"`
	Authority []AuthorityLevel `mapstructure:"authority"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	SSLMode     string        `mapstructure:"ssl_mode"`
	MaxConns    int32         `mapstructure:"max_conns"`
	MinConns    int32         `mapstructure:"min_conns"`
	MaxConnTime time.Duration `mapstructure:"max_conn_time"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time"`
}

// NATSConfig holds the event-sink connection settings. An empty URL disables
// event publishing.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// AuthorityLevel is one row of the role → spending-limit table consumed by
// the approval authority resolver. Amounts are cents; -1 means unlimited.
type AuthorityLevel struct {
	Role                    string `mapstructure:"role"`
	MaxAutoApprove          int64  `mapstructure:"max_auto_approve"`
	SecondApprovalThreshold int64  `mapstructure:"second_approval_threshold"`
}

// Load reads configuration from WORKFLOW_CONFIG (or ./config.yaml when unset)
// and the environment. A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("service.name", "workflow-engine")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")
	v.SetDefault("service.log_level", "info")

	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "supersitehero")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_time", time.Hour)
	v.SetDefault("database.max_idle_time", 30*time.Minute)

	v.SetDefault("nats.url", "")

	v.SetEnvPrefix("WORKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperr.Wrap(err, apperr.CodeInvalidInput, "failed to read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidInput, "failed to unmarshal config")
	}

	return cfg, nil
}
