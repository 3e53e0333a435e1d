package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultEnv                = "local"
	defaultMonitoringAddr     = ":9090"
	defaultEmployeeIDPrefix   = "UI"
	defaultEmployeeIDWidth    = 7
	defaultTracingSampleRatio = 0.1
	defaultConnectAttempts    = 10
	defaultConnectRetryDelay  = 3 * time.Second

	// DatabaseURLEnv は接続文字列を上書きする環境変数名です。
	DatabaseURLEnv = "DATABASE_URL"
)

// Tracing のエクスポーター種別です。
const (
	TracingExporterNone   = "none"
	TracingExporterStdout = "stdout"
	TracingExporterOTLP   = "otlp"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Env        string           `yaml:"env"`
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Database   DatabaseConfig   `yaml:"database"`
	EmployeeID EmployeeIDConfig `yaml:"employee_id"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// MonitoringConfig は /metrics と /healthz を公開する HTTP サーバーの設定です。
type MonitoringConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	URL                string        `yaml:"url"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	ConnectAttempts    int           `yaml:"connect_attempts"`
	ConnectRetryDelay  time.Duration `yaml:"-"`
	ConnectRetryRaw    string        `yaml:"connect_retry_delay"`
}

// EmployeeIDConfig は社員 ID の書式設定です。
type EmployeeIDConfig struct {
	Prefix string `yaml:"prefix"`
	Width  int    `yaml:"width"`
}

// TracingConfig は OpenTelemetry の設定です。
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
// カレントディレクトリに .env があれば先に読み込み、DATABASE_URL が設定されていれば接続先を上書きします。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv(DatabaseURLEnv)); v != "" {
		cfg.Database.URL = v
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Env == "" {
		c.Env = defaultEnv
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if c.Monitoring.ListenAddr == "" {
		c.Monitoring.ListenAddr = defaultMonitoringAddr
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.EmployeeID.validateAndNormalize(); err != nil {
		return err
	}

	return c.Tracing.validateAndNormalize()
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.URL == "" {
		if d.Host == "" {
			return fmt.Errorf("config: database.host must be set")
		}
		if d.Port == 0 {
			return fmt.Errorf("config: database.port must be set")
		}
		if d.User == "" {
			return fmt.Errorf("config: database.user must be set")
		}
		if d.Password == "" {
			return fmt.Errorf("config: database.password must be set")
		}
		if d.Name == "" {
			return fmt.Errorf("config: database.name must be set")
		}
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	if d.ConnectAttempts <= 0 {
		d.ConnectAttempts = defaultConnectAttempts
	}
	retryDelay, err := parseDurationAllowEmpty(d.ConnectRetryRaw)
	if err != nil {
		return fmt.Errorf("config: database.connect_retry_delay: %w", err)
	}
	if retryDelay == 0 {
		retryDelay = defaultConnectRetryDelay
	}
	d.ConnectRetryDelay = retryDelay

	return nil
}

func (e *EmployeeIDConfig) validateAndNormalize() error {
	e.Prefix = strings.TrimSpace(e.Prefix)
	if e.Prefix == "" {
		e.Prefix = defaultEmployeeIDPrefix
	}
	if e.Width == 0 {
		e.Width = defaultEmployeeIDWidth
	}
	if e.Width < 0 || e.Width > 18 {
		return fmt.Errorf("config: employee_id.width must be between 1 and 18")
	}
	return nil
}

func (t *TracingConfig) validateAndNormalize() error {
	t.Exporter = strings.ToLower(strings.TrimSpace(t.Exporter))
	switch t.Exporter {
	case "":
		t.Exporter = TracingExporterNone
	case TracingExporterNone, TracingExporterStdout:
	case TracingExporterOTLP:
		if strings.TrimSpace(t.Endpoint) == "" {
			return fmt.Errorf("config: tracing.endpoint must be set for otlp exporter")
		}
	default:
		return fmt.Errorf("config: unsupported tracing.exporter %q", t.Exporter)
	}

	if t.SampleRatio == 0 {
		t.SampleRatio = defaultTracingSampleRatio
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("config: tracing.sample_ratio must be within [0, 1]")
	}
	if t.ServiceName == "" {
		t.ServiceName = "cafe-staffing"
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。URL が設定されている場合はそれを優先します。
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
