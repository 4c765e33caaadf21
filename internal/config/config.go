package config

import (
	stderrors "errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/terse/internal/errors"
)

const (
	// FileName is the configuration file name without extension.
	FileName = "terse"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "TERSE"

	DefaultHost = "localhost"
	DefaultPort = 3000
)

// Config is the complete project configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Render RenderConfig `mapstructure:"render"`
	Live   LiveConfig   `mapstructure:"live"`
	Log    LogConfig    `mapstructure:"log"`
	Pages  PagesConfig  `mapstructure:"pages"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// RenderConfig configures server rendering.
type RenderConfig struct {
	Lang   string `mapstructure:"lang"`
	Title  string `mapstructure:"title"`
	Pretty bool   `mapstructure:"pretty"`
}

// LiveConfig configures live sessions.
type LiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PagesConfig locates page spec files.
type PagesConfig struct {
	Dir string `mapstructure:"dir"`
}

// WatchConfig configures reloading on file changes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("render.lang", "en")
	v.SetDefault("render.title", "")
	v.SetDefault("render.pretty", false)
	v.SetDefault("live.enabled", true)
	v.SetDefault("live.path", "/_terse/live")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("pages.dir", "pages")
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", 100*time.Millisecond)
}

// NewViper returns a viper instance with defaults, the config file search
// path and environment overrides set up.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName(FileName)
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An explicit file must exist; otherwise a
// missing terse.yaml or terse.json is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stderrors.As(err, &notFound) {
			return nil, errors.New("E110").WithDetailf("reading config: %v", err).Wrap(err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("E110").WithDetailf("decoding config: %v", err).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with only defaults applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return errors.Newf("E110", "server.port %d is outside 0-65535", c.Server.Port).WithPath("server.port")
	case c.Server.ShutdownTimeout < 0:
		return errors.Newf("E110", "server.shutdownTimeout must not be negative").WithPath("server.shutdownTimeout")
	case c.Live.Enabled && !strings.HasPrefix(c.Live.Path, "/"):
		return errors.Newf("E110", "live.path %q must start with /", c.Live.Path).WithPath("live.path")
	case c.Pages.Dir == "":
		return errors.Newf("E110", "pages.dir is empty").WithPath("pages.dir")
	case c.Watch.Debounce < 0:
		return errors.Newf("E110", "watch.debounce must not be negative").WithPath("watch.debounce")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Newf("E110", "log.format %q is not text or json", c.Log.Format).WithPath("log.format")
	}
	return nil
}

// Addr returns the server's host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Newf("E110", "log.level %q is not debug, info, warn or error", s).WithPath("log.level")
}
