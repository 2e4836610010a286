package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

// App holds application configuration.
type App struct {
	Name    string `mapstructure:"name" default:"market-aggregator"`
	Env     string `mapstructure:"env" default:"development"`
	Version string `mapstructure:"version" default:"dev"`
}

// Logger holds logger configuration.
type Logger struct {
	Level    string `mapstructure:"level" default:"info"`
	Encoding string `mapstructure:"encoding" default:"json"`
}

// Database holds database configuration.
// Driver is "postgres" or "sqlite"; Path is only used by sqlite.
type Database struct {
	Driver          string `mapstructure:"driver" default:"postgres"`
	Path            string `mapstructure:"path" default:"market.db"`
	Host            string `mapstructure:"host" default:"localhost"`
	Port            int    `mapstructure:"port" default:"5432"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode" default:"disable"`
	TimeZone        string `mapstructure:"time_zone" default:"UTC"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" default:"5"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" default:"20"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime" default:"30m"`
	LogLevel        string `mapstructure:"log_level" default:"warn"`
}

// DSN returns the postgres connection url used by the migrate CLI.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
		d.SSLMode)
}

// Redis holds Redis configuration.
type Redis struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host" default:"localhost"`
	Port         int    `mapstructure:"port" default:"6379"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size" default:"10"`
	StreamMaxLen int64  `mapstructure:"stream_max_len" default:"1000"`
}

// API holds API server configuration.
type API struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" default:"8080"`
}

// Metrics holds Prometheus exposition configuration.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// Load loads configuration from a file into the given config struct and
// fills every zero field that carries a `default` tag.
func Load(path string, config interface{}) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Failed to read config file .env config try read from environment variables")
	}

	if err := v.Unmarshal(config); err != nil {
		return err
	}

	return defaults.Set(config)
}
