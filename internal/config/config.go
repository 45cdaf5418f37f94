// Package config loads linkmagico settings from a config file, environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/linkmagico/pkg/extractor"
	"github.com/jmylchreest/linkmagico/pkg/fetcher"
	"github.com/jmylchreest/linkmagico/pkg/linkmagico"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

// EnvPrefix prefixes every environment variable, e.g. LINKMAGICO_SERVER_ADDR.
const EnvPrefix = "LINKMAGICO"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Extract ExtractConfig `mapstructure:"extract"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	StaticDir       string        `mapstructure:"static_dir"`
	BodyLimit       string        `mapstructure:"body_limit" validate:"required"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"gte=0"`
	RateWindow      time.Duration `mapstructure:"rate_window" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	Metrics         bool          `mapstructure:"metrics"`
}

// FetchConfig configures page fetching.
type FetchConfig struct {
	Mode        string        `mapstructure:"mode" validate:"oneof=static dynamic auto"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent   string        `mapstructure:"user_agent"`
	RenderJS    bool          `mapstructure:"render_js"`
	MaxBodySize string        `mapstructure:"max_body_size" validate:"required"`
	ChromePath  string        `mapstructure:"chrome_path"`
}

// CacheConfig configures the extraction cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	FailurePolicy string        `mapstructure:"failure_policy" validate:"oneof=retry cache"`
}

// ExtractConfig configures the field extractor.
type ExtractConfig struct {
	RulesFile string           `mapstructure:"rules_file"`
	Defaults  product.Defaults `mapstructure:"defaults"`
}

// LLMConfig configures the optional chat model. An empty provider
// auto-detects from the API key environment variables; "none" disables it.
type LLMConfig struct {
	Provider  string        `mapstructure:"provider" validate:"omitempty,oneof=anthropic openai none"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	MaxTokens int           `mapstructure:"max_tokens" validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers every key with its default value. Registering all
// keys also lets environment variables override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.static_dir", "web")
	v.SetDefault("server.body_limit", "10MB")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_window", 15*time.Minute)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.metrics", true)

	v.SetDefault("fetch.mode", string(fetcher.ModeStatic))
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("fetch.render_js", false)
	v.SetDefault("fetch.max_body_size", "10MB")
	v.SetDefault("fetch.chrome_path", "")

	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.sweep_interval", 5*time.Minute)
	v.SetDefault("cache.failure_policy", "retry")

	d := product.DefaultDefaults()
	v.SetDefault("extract.rules_file", "")
	v.SetDefault("extract.defaults.title", d.Title)
	v.SetDefault("extract.defaults.price", d.Price)
	v.SetDefault("extract.defaults.description", d.Description)
	v.SetDefault("extract.defaults.failure_description", d.FailureDescription)
	v.SetDefault("extract.defaults.benefits", d.Benefits)
	v.SetDefault("extract.defaults.testimonials", d.Testimonials)
	v.SetDefault("extract.defaults.cta", d.CallToAction)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.timeout", 20*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Setup points v at the config file and the environment. An empty cfgFile
// searches for .linkmagico.yaml in the home and working directories. A
// missing default file is not an error; a missing explicit file is.
func Setup(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".linkmagico")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Server.BodyLimitBytes(); err != nil {
		return nil, err
	}
	if _, err := cfg.Fetch.MaxBodyBytes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BodyLimitBytes parses BodyLimit ("10MB", "512KiB").
func (s ServerConfig) BodyLimitBytes() (int64, error) {
	return parseSize("server.body_limit", s.BodyLimit)
}

// MaxBodyBytes parses MaxBodySize.
func (f FetchConfig) MaxBodyBytes() (int64, error) {
	return parseSize("fetch.max_body_size", f.MaxBodySize)
}

func parseSize(key, value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return int64(n), nil
}

// Options converts the fetch, cache and extract sections into orchestrator
// options, loading the rules file when one is configured.
func (c *Config) Options() ([]linkmagico.Option, error) {
	policy, err := linkmagico.ParseFailurePolicy(c.Cache.FailurePolicy)
	if err != nil {
		return nil, err
	}
	maxBody, err := c.Fetch.MaxBodyBytes()
	if err != nil {
		return nil, err
	}

	opts := []linkmagico.Option{
		linkmagico.WithFetchMode(fetcher.Mode(c.Fetch.Mode)),
		linkmagico.WithTimeout(c.Fetch.Timeout),
		linkmagico.WithRenderJS(c.Fetch.RenderJS),
		linkmagico.WithUserAgent(c.Fetch.UserAgent),
		linkmagico.WithMaxBodySize(int(maxBody)),
		linkmagico.WithCacheTTL(c.Cache.TTL),
		linkmagico.WithFailurePolicy(policy),
		linkmagico.WithDefaults(c.Extract.Defaults),
	}

	if c.Fetch.ChromePath != "" {
		opts = append(opts, linkmagico.WithChromePath(c.Fetch.ChromePath))
	}

	if c.Extract.RulesFile != "" {
		rules, err := extractor.LoadRules(c.Extract.RulesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, linkmagico.WithRules(rules))
	}

	return opts, nil
}
