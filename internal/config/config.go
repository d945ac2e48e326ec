package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	LogLevel  string
	LogFormat string // json|console

	// NotifySink selects where grading notifications go: log|outbox|both.
	NotifySink string
	SiteID     string
	// GradingSurfaceURL prefixes deep links in grading notifications.
	GradingSurfaceURL string

	TickInterval time.Duration
	// SessionRetention is how long finished attempts stay readable in memory.
	SessionRetention time.Duration

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// Load reads configuration from the environment and, when path is not empty,
// from a config file. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	return fromViper(v), nil
}

// FromEnv is Load without a config file.
func FromEnv() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("public_url", "")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")
	v.SetDefault("notify_sink", "both")
	v.SetDefault("site_id", "local")
	v.SetDefault("grading_surface_url", "")
	v.SetDefault("tick_interval", "1s")
	v.SetDefault("session_retention", "15m")
	v.SetDefault("cors_origins_online", "https://lms.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:3010,http://localhost:3020")
}

func fromViper(v *viper.Viper) Config {
	mode := Mode(v.GetString("mode"))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	pub := strings.TrimSuffix(v.GetString("public_url"), "/")
	grading := v.GetString("grading_surface_url")
	if grading == "" {
		grading = pub
	}
	format := v.GetString("log_format")
	if format == "" {
		format = "console"
		if mode == ModeOnline {
			format = "json"
		}
	}
	tick := v.GetDuration("tick_interval")
	if tick <= 0 {
		tick = time.Second
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("http_addr"),
		PublicURL:          pub,
		DBDriver:           v.GetString("db_driver"),
		DBDSN:              v.GetString("db_dsn"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          format,
		NotifySink:         strings.ToLower(v.GetString("notify_sink")),
		SiteID:             v.GetString("site_id"),
		GradingSurfaceURL:  grading,
		TickInterval:       tick,
		SessionRetention:   v.GetDuration("session_retention"),
		CORSOriginsOnline:  csv(v.GetString("cors_origins_online")),
		CORSOriginsOffline: csv(v.GetString("cors_origins_offline")),
	}
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
