package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres memory"`
	DSN    string `mapstructure:"dsn"`
}

type CheckConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=1s"`
	// GraceFactor is the heartbeat liveness window as a multiple of the
	// monitor interval: no signal for interval*grace_factor means DOWN.
	GraceFactor float64 `mapstructure:"grace_factor" validate:"gte=1"`
}

type NotifyConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=0,lte=5"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	SendTimeout   time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
}

type RetentionConfig struct {
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
	Schedule string        `mapstructure:"schedule" validate:"required"`
}

type Config struct {
	Addr      string          `mapstructure:"addr" validate:"required"`
	LogDir    string          `mapstructure:"log_dir" validate:"required"`
	Debug     bool            `mapstructure:"debug"`
	Store     StoreConfig     `mapstructure:"store"`
	Check     CheckConfig     `mapstructure:"check"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// Load reads configuration from an optional YAML file plus PULSEMON_*
// environment variables, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PULSEMON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("debug", false)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "pulsemon.db")

	v.SetDefault("check.timeout", "10s")
	v.SetDefault("check.min_interval", "5s")
	v.SetDefault("check.grace_factor", 2.0)

	v.SetDefault("notify.retry_attempts", 2)
	v.SetDefault("notify.retry_backoff", "500ms")
	v.SetDefault("notify.send_timeout", "10s")

	v.SetDefault("retention.window", "720h") // 30 days
	v.SetDefault("retention.schedule", "@hourly")
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}
	if cfg.Store.Driver != "memory" && cfg.Store.DSN == "" {
		return errors.New("config validation failed:\n- field 'Config.Store.DSN' required for driver " + cfg.Store.Driver)
	}
	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
