package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Survey struct {
		SweepIntervalMinutes  int `yaml:"sweep_interval_minutes"`
		CatchUpDelayMinutes   int `yaml:"catch_up_delay_minutes"`
		GateRetryDelayMinutes int `yaml:"gate_retry_delay_minutes"`
		SessionTTLMinutes     int `yaml:"session_ttl_minutes"`
	} `yaml:"survey"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/moodpulse.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) SweepInterval() time.Duration {
	if c.Survey.SweepIntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Survey.SweepIntervalMinutes) * time.Minute
}

func (c *Config) CatchUpDelay() time.Duration {
	if c.Survey.CatchUpDelayMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(c.Survey.CatchUpDelayMinutes) * time.Minute
}

func (c *Config) GateRetryDelay() time.Duration {
	if c.Survey.GateRetryDelayMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Survey.GateRetryDelayMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	if c.Survey.SessionTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Survey.SessionTTLMinutes) * time.Minute
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
