package pkg

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL      = "https://disease.sh/v3/covid-19"
	DefaultLookbackDays = 30
)

type ArangoConfig struct {
	Endpoint    string
	Username    string
	Password    string
	Certificate string
	Database    string
}

type Config struct {
	BaseURL        string
	LookbackDays   int
	RequestTimeout time.Duration
	ListenAddr     string
	LogLevel       string
	Archive        bool
	Arango         ArangoConfig
}

// LoadConfig reads DASHBOARD_* variables, and the ARANGO_* variables used by
// the snapshot archive, from the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("dashboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("lookback_days", DefaultLookbackDays)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("archive", false)

	for key, env := range map[string]string{
		"arango.endpoint":    "ARANGO_ENDPOINT",
		"arango.username":    "ARANGO_USER_NAME",
		"arango.password":    "ARANGO_PASS",
		"arango.certificate": "ARANGO_CERTIFICATE",
		"arango.database":    "ARANGO_DATABASE",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed binding %s: %w", env, err)
		}
	}

	cfg := &Config{
		BaseURL:        strings.TrimRight(v.GetString("base_url"), "/"),
		LookbackDays:   v.GetInt("lookback_days"),
		RequestTimeout: v.GetDuration("request_timeout"),
		ListenAddr:     v.GetString("listen_addr"),
		LogLevel:       v.GetString("log_level"),
		Archive:        v.GetBool("archive"),
		Arango: ArangoConfig{
			Endpoint:    v.GetString("arango.endpoint"),
			Username:    v.GetString("arango.username"),
			Password:    v.GetString("arango.password"),
			Certificate: v.GetString("arango.certificate"),
			Database:    v.GetString("arango.database"),
		},
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive, got %d", c.LookbackDays)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Archive {
		a := c.Arango
		if a.Endpoint == "" || a.Username == "" || a.Password == "" || a.Certificate == "" || a.Database == "" {
			return errors.New("ARANGO_ENDPOINT, ARANGO_USER_NAME, ARANGO_PASS, ARANGO_CERTIFICATE AND ARANGO_DATABASE must be provided")
		}
	}
	return nil
}
