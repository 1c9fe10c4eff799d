package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. DRAWCONSOLE_API_BASE_URL.
const EnvPrefix = "DRAWCONSOLE"

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	API     APIConfig     `mapstructure:"api"`
	Draw    DrawConfig    `mapstructure:"draw"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

// MongoDBConfig holds MongoDB-specific configuration. An empty URI keeps
// the audit trail in memory.
type MongoDBConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// JWTConfig holds JWT-specific configuration. The HTTP console requires a
// secret; drawctl may run without one and only decodes its own token.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// APIConfig configures the promo backend client
type APIConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	Token             string  `mapstructure:"token"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries"`
}

// DrawConfig tunes the draw console
type DrawConfig struct {
	SpinDelayMS        int `mapstructure:"spin_delay_ms"`
	SessionIdleMinutes int `mapstructure:"session_idle_minutes"`
	CacheTTLSeconds    int `mapstructure:"cache_ttl_seconds"`
	AuditLimit         int `mapstructure:"audit_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Timeout returns the backend request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SpinDelay returns the hold applied to a successful draw result.
func (c DrawConfig) SpinDelay() time.Duration {
	return time.Duration(c.SpinDelayMS) * time.Millisecond
}

// SessionIdle returns how long an operator controller may sit unused.
func (c DrawConfig) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// CacheTTL returns the lifetime of cached read views.
func (c DrawConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load loads configuration from .env, an optional config.yaml and
// DRAWCONSOLE_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	// It's okay if there is no .env file
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Env("CONFIG_DIR", "."))
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.allowed_hosts", []string{"http://localhost:3000"})
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "bridgetunes-draw-console")
	v.SetDefault("mongodb.timeout_secs", 10)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.requests_per_second", 0)
	v.SetDefault("api.max_retries", 2)
	v.SetDefault("draw.spin_delay_ms", 3000)
	v.SetDefault("draw.session_idle_minutes", 60)
	v.SetDefault("draw.cache_ttl_seconds", 60)
	v.SetDefault("draw.audit_limit", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return eris.New("config: api.base_url is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return eris.Errorf("config: server.port %q is not a valid port", c.Server.Port)
	}
	if c.API.TimeoutSecs < 0 || c.API.MaxRetries < 0 || c.API.RequestsPerSecond < 0 {
		return eris.New("config: api timeouts, retries and rate must not be negative")
	}
	if c.Draw.SpinDelayMS < 0 || c.Draw.CacheTTLSeconds < 0 {
		return eris.New("config: draw.spin_delay_ms and draw.cache_ttl_seconds must not be negative")
	}
	return nil
}

// ValidateServer checks everything Validate does and additionally requires
// jwt.secret, which the HTTP console needs to tell operators apart.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return eris.New("config: jwt.secret is required to serve the console")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
