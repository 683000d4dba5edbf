package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the HTTP server settings read from the "server" section.
type Config struct {
	Host           string
	Port           int
	DevMode        bool
	RateLimitRPS   float64
	RateLimitBurst int
	// MaxBodyBytes caps request bodies; 0 disables the cap.
	MaxBodyBytes int64
	// TrustProxyHeaders keys rate limits by X-Forwarded-For.
	TrustProxyHeaders bool
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the settings LoadConfig cannot check itself.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Port)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("server rate limits must not be negative")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes %d must not be negative", c.MaxBodyBytes)
	}
	return nil
}

// ServerConfig extracts the server section from a loaded configuration.
// Keys are read one by one so environment overrides apply to each.
func ServerConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Host:              v.GetString("server.host"),
		Port:              v.GetInt("server.port"),
		DevMode:           v.GetBool("server.dev_mode"),
		RateLimitRPS:      v.GetFloat64("server.rate_limit_rps"),
		RateLimitBurst:    v.GetInt("server.rate_limit_burst"),
		MaxBodyBytes:      v.GetInt64("server.max_body_bytes"),
		TrustProxyHeaders: v.GetBool("server.trust_proxy_headers"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from file, environment and defaults.
// When path is empty the file is searched as ponplan.yaml in the working
// directory, ./configs and /etc/ponplan; a missing file is not an error.
// Environment variables use the PONPLAN_ prefix with dots replaced by
// underscores, so PONPLAN_SERVER_PORT overrides server.port.
func LoadConfig(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.rate_limit_rps", 100)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "ponplan.db")
	v.SetDefault("plugins.planner.rules_file", "")
	v.SetDefault("plugins.planner.direct_max_subscribers", 0)
	v.SetDefault("plugins.planner.tube_capacity", 0)
	v.SetDefault("plugins.webhook.url", "")
	v.SetDefault("plugins.webhook.timeout", "10s")
	v.SetDefault("plugins.webhook.enabled", true)
	v.SetDefault("plugins.webhook.alerts_only", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ponplan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ponplan")
	}

	v.SetEnvPrefix("PONPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}
