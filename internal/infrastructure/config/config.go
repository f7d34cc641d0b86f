package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/cityinfra/trafficcontrol/internal/shared/config"
)

type Config struct {
	Server     sharedConfig.ServerConfig     `mapstructure:"server"`
	Database   sharedConfig.DatabaseConfig   `mapstructure:"database"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Email      sharedConfig.EmailConfig      `mapstructure:"email"`
	Redis      sharedConfig.RedisConfig      `mapstructure:"redis"`
	Spatial    sharedConfig.SpatialConfig    `mapstructure:"spatial"`
	ClamAV     sharedConfig.ClamAVConfig     `mapstructure:"clamav"`
	Report     sharedConfig.ReportConfig     `mapstructure:"report"`
	Inactivity sharedConfig.InactivityConfig `mapstructure:"inactivity"`
	Permission sharedConfig.PermissionConfig `mapstructure:"permission"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml, a local .env file and CITYINFRA_* variables.
// A missing config file is tolerated so the binary runs from env alone. An
// explicit path replaces the search and must exist.
func Load(env string, path ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	explicit := len(path) > 0 && path[0] != ""
	if explicit {
		v.SetConfigFile(path[0])
	}

	v.SetEnvPrefix("CITYINFRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.timezone", "Europe/Helsinki")
	v.SetDefault("server.admin_base_url", "http://localhost:8000/admin")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "cityinfra")
	v.SetDefault("database.password", "cityinfra")
	v.SetDefault("database.database", "cityinfra")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "cityinfra.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Email defaults
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 1025)
	v.SetDefault("email.from_address", "noreply@cityinfra.local")
	v.SetDefault("email.from_name", "City Infra")
	v.SetDefault("email.default_max_recipients", 10)
	v.SetDefault("email.rate_per_second", 5)

	// Redis is optional; an empty host disables the run lock.
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// ETRS-GK25 over Helsinki
	v.SetDefault("spatial.srid", 3879)
	v.SetDefault("spatial.bounds.min_x", 25440000)
	v.SetDefault("spatial.bounds.min_y", 6630000)
	v.SetDefault("spatial.bounds.max_x", 25571000)
	v.SetDefault("spatial.bounds.max_y", 6720000)
	v.SetDefault("spatial.compare_precision", 6)
	v.SetDefault("spatial.match_radius", 2.0)

	v.SetDefault("clamav.base_url", "")
	v.SetDefault("clamav.api_version", "v1")
	v.SetDefault("clamav.timeout", "30s")

	v.SetDefault("report.sink", "local")
	v.SetDefault("report.local_dir", "reports")

	v.SetDefault("inactivity.deactivate_after_days", 180)
	v.SetDefault("inactivity.one_day_warning_days", 1)
	v.SetDefault("inactivity.one_week_warning_days", 7)
	v.SetDefault("inactivity.one_month_warning_days", 30)
	v.SetDefault("inactivity.notify_cron", "0 7 * * *")
	v.SetDefault("inactivity.report_cron", "0 8 1 * *")
}
