package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// FileName is looked up without extension in the search paths
	FileName  = "sprunki"
	EnvPrefix = "SPRUNKI"

	FlagsMemory = "memory"
	FlagsFile   = "file"
	FlagsRedis  = "redis"
)

type Config struct {
	APIBase    string `mapstructure:"api_base"`
	ArticleURL string `mapstructure:"article_url"`
	GameURL    string `mapstructure:"game_url"`
	UserAgent  string `mapstructure:"user_agent"`
	RedisURL   string `mapstructure:"redis_url"`
	VisitorID  string `mapstructure:"visitor_id"`

	Flags  FlagsConfig  `mapstructure:"flags"`
	Server ServerConfig `mapstructure:"server"`
	PWA    PWAConfig    `mapstructure:"pwa"`
	Log    LogConfig    `mapstructure:"log"`
	UI     UIConfig     `mapstructure:"ui"`
}

type FlagsConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	Origin         string   `mapstructure:"origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Debug          bool     `mapstructure:"debug"`
}

type PWAConfig struct {
	Version string   `mapstructure:"version"`
	Static  []string `mapstructure:"static"`
	Cache   string   `mapstructure:"cache"` // memory or redis
}

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type UIConfig struct {
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Debounce   time.Duration `mapstructure:"debounce"`
	Sort       string        `mapstructure:"sort"`
}

// Dir is where sprunki keeps its state unless configured otherwise
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sprunki"
	}
	return filepath.Join(home, ".sprunki")
}

// Defaults is the configuration used when nothing is set
func Defaults() Config {
	dir := Dir()
	return Config{
		APIBase:    "http://localhost:5000/api/comments",
		ArticleURL: "/",
		GameURL:    "http://localhost:5000/",
		UserAgent:  "",
		Flags: FlagsConfig{
			Backend: FlagsFile,
			Path:    filepath.Join(dir, "flags.yaml"),
		},
		Server: ServerConfig{
			Addr:   ":8080",
			Origin: "http://localhost:5000",
		},
		PWA: PWAConfig{
			Version: "1.0.4",
			Static: []string{
				"/",
				"/static/style/style.css",
				"/static/style/language-selector.css",
				"/static/style/fullscreen.js",
				"/static/style/native-fullscreen.js",
				"/static/js/game-status-bar.js",
				"/static/manifest.json",
				"/static/icon-192.png",
				"/static/icon-512.png",
				"/static/favicon.ico",
			},
			Cache: "memory",
		},
		Log: LogConfig{
			Dir:   filepath.Join(dir, "logs"),
			Level: "info",
		},
		UI: UIConfig{
			RetryDelay: 500 * time.Millisecond,
			Debounce:   250 * time.Millisecond,
			Sort:       "created_at",
		},
	}
}

// setDefaults registers every key so environment variables can override
// keys that are absent from the file
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("api_base", d.APIBase)
	v.SetDefault("article_url", d.ArticleURL)
	v.SetDefault("game_url", d.GameURL)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("redis_url", d.RedisURL)
	v.SetDefault("visitor_id", d.VisitorID)
	v.SetDefault("flags.backend", d.Flags.Backend)
	v.SetDefault("flags.path", d.Flags.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.origin", d.Server.Origin)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("pwa.version", d.PWA.Version)
	v.SetDefault("pwa.static", d.PWA.Static)
	v.SetDefault("pwa.cache", d.PWA.Cache)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("ui.retry_delay", d.UI.RetryDelay)
	v.SetDefault("ui.debounce", d.UI.Debounce)
	v.SetDefault("ui.sort", d.UI.Sort)
}

// Load reads file, or sprunki.yaml from the search paths when file is empty,
// then applies SPRUNKI_* environment variables. A missing config file is
// not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	switch c.Flags.Backend {
	case FlagsMemory, FlagsFile:
	case FlagsRedis:
		if c.RedisURL == "" {
			return errors.New("flags.backend is redis but redis_url is empty")
		}
	default:
		return errors.Errorf("unknown flags.backend %q", c.Flags.Backend)
	}
	if c.PWA.Cache == FlagsRedis && c.RedisURL == "" {
		return errors.New("pwa.cache is redis but redis_url is empty")
	}
	if c.APIBase == "" {
		return errors.New("api_base is required")
	}
	return nil
}
