package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "RLTOOLS"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Cards    CardsConfig    `mapstructure:"cards"`
	Smoke    SmokeConfig    `mapstructure:"smoke"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// DatabaseConfig describes the target postgres. URL, when set, wins over the
// individual connection fields.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Name           string        `mapstructure:"name"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxConns       int           `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type CardsConfig struct {
	Count        int           `mapstructure:"count"`
	Amount       int           `mapstructure:"amount"`
	VIPLevel     int           `mapstructure:"vip_level"`
	DurationDays int           `mapstructure:"duration_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SmokeConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Headless          bool          `mapstructure:"headless"`
	ScreenshotDir     string        `mapstructure:"screenshot_dir"`
	Timeout           time.Duration `mapstructure:"timeout"`
	NavigationTimeout time.Duration `mapstructure:"nav_timeout"`
}

// Load reads config.yaml from the working directory (or path when given) and
// overlays RLTOOLS_* environment variables. A missing config file is not an
// error. Sections are validated by the command that uses them, after its flag
// overrides are applied.
func Load(path string) (Config, error) {
	// .env is optional; real environment variables take precedence over it.
	_ = godotenv.Load()

	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(strings.TrimSpace(path))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "rl_server")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 2)
	v.SetDefault("database.connect_timeout", "5s")

	v.SetDefault("cards.count", 10)
	v.SetDefault("cards.amount", 99)
	v.SetDefault("cards.vip_level", 1)
	v.SetDefault("cards.duration_days", 30)
	v.SetDefault("cards.timeout", "30s")

	v.SetDefault("smoke.base_url", "http://localhost:28001")
	v.SetDefault("smoke.headless", false)
	v.SetDefault("smoke.screenshot_dir", ".")
	v.SetDefault("smoke.timeout", "2m")
	v.SetDefault("smoke.nav_timeout", "30s")
}

func (d DatabaseConfig) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		if strings.TrimSpace(d.Host) == "" {
			return errors.New("database.host is required")
		}
		if d.Port <= 0 || d.Port > 65535 {
			return errors.New("database.port must be between 1 and 65535")
		}
		if strings.TrimSpace(d.Name) == "" {
			return errors.New("database.name is required")
		}
	}
	if d.MaxConns <= 0 {
		return errors.New("database.max_conns must be greater than 0")
	}
	if d.ConnectTimeout <= 0 {
		return errors.New("database.connect_timeout must be greater than 0")
	}
	return nil
}

// DSN returns a postgres URL usable by both pgx and golang-migrate.
func (d DatabaseConfig) DSN() string {
	if raw := strings.TrimSpace(d.URL); raw != "" {
		return raw
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(strings.TrimSpace(d.Host), strconv.Itoa(d.Port)),
		Path:   "/" + strings.TrimSpace(d.Name),
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		secs := int(d.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c CardsConfig) Validate() error {
	if c.Count <= 0 {
		return errors.New("cards.count must be greater than 0")
	}
	if c.Amount < 0 {
		return errors.New("cards.amount must not be negative")
	}
	if c.VIPLevel < 0 {
		return errors.New("cards.vip_level must not be negative")
	}
	if c.DurationDays < 0 {
		return errors.New("cards.duration_days must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("cards.timeout must be greater than 0")
	}
	return nil
}

func (s SmokeConfig) Validate() error {
	u, err := url.Parse(strings.TrimSpace(s.BaseURL))
	if err != nil {
		return fmt.Errorf("smoke.base_url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("smoke.base_url must use http or https")
	}
	if u.Host == "" {
		return errors.New("smoke.base_url must include a host")
	}
	if s.Timeout <= 0 {
		return errors.New("smoke.timeout must be greater than 0")
	}
	if s.NavigationTimeout <= 0 {
		return errors.New("smoke.nav_timeout must be greater than 0")
	}
	return nil
}
