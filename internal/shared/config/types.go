package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Mode         string `mapstructure:"mode"`
	Timezone     string `mapstructure:"timezone"`
	AdminBaseURL string `mapstructure:"admin_base_url"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) GetDSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
}

// GetURL returns the connection string in URL form, as the migration tools expect.
func (d *DatabaseConfig) GetURL() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, sslMode)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type EmailConfig struct {
	SMTPHost             string  `mapstructure:"smtp_host"`
	SMTPPort             int     `mapstructure:"smtp_port"`
	SMTPUser             string  `mapstructure:"smtp_user"`
	SMTPPassword         string  `mapstructure:"smtp_password"`
	FromAddress          string  `mapstructure:"from_address"`
	FromName             string  `mapstructure:"from_name"`
	DefaultMaxRecipients int     `mapstructure:"default_max_recipients"`
	RatePerSecond        float64 `mapstructure:"rate_per_second"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis host was configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// BoundsConfig is a projection bounding box in the SRID's units.
type BoundsConfig struct {
	MinX float64 `mapstructure:"min_x"`
	MinY float64 `mapstructure:"min_y"`
	MaxX float64 `mapstructure:"max_x"`
	MaxY float64 `mapstructure:"max_y"`
}

type SpatialConfig struct {
	SRID             int          `mapstructure:"srid"`
	Bounds           BoundsConfig `mapstructure:"bounds"`
	ComparePrecision int          `mapstructure:"compare_precision"`
	MatchRadius      float64      `mapstructure:"match_radius"`
}

type ClamAVConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	Prefix    string `mapstructure:"prefix"`
}

type ReportConfig struct {
	Sink     string   `mapstructure:"sink"`
	LocalDir string   `mapstructure:"local_dir"`
	S3       S3Config `mapstructure:"s3"`
}

type InactivityConfig struct {
	DeactivateAfterDays int    `mapstructure:"deactivate_after_days"`
	OneDayWarningDays   int    `mapstructure:"one_day_warning_days"`
	OneWeekWarningDays  int    `mapstructure:"one_week_warning_days"`
	OneMonthWarningDays int    `mapstructure:"one_month_warning_days"`
	NotifyCron          string `mapstructure:"notify_cron"`
	ReportCron          string `mapstructure:"report_cron"`
}

type PermissionConfig struct {
	ModelPath string `mapstructure:"model_path"`
}
