// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package config

import (
	"bytes"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/safety"
	"github.com/contentloop/contentloop/internal/secrets"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CONTENTLOOP_SESSIONS_TTL=10m.
const EnvPrefix = "CONTENTLOOP"

// Config is the top-level ContentLoop configuration.
type Config struct {
	Networking NetworkingConfig          `mapstructure:"networking"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Models     ModelsConfig              `mapstructure:"models"`
	Sessions   SessionsConfig            `mapstructure:"sessions"`
	Engine     EngineConfig              `mapstructure:"engine"`
	Guard      GuardConfig               `mapstructure:"guard"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Safety     SafetyConfig              `mapstructure:"safety"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen       string        `mapstructure:"listen"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
// APIKey may be a keyring://service/key reference.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection and sampling.
type ModelsConfig struct {
	Default     string   `mapstructure:"default"`
	Failover    []string `mapstructure:"failover"`
	Temperature float32  `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// SessionsConfig controls session lifetime and lane depth.
type SessionsConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	MaxPending   int           `mapstructure:"max_pending"`
}

// EngineConfig controls the refinement loop.
type EngineConfig struct {
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	Sentinels         []string      `mapstructure:"sentinels"`
}

// GuardConfig sets the admission budgets. Zero budgets disable the guard.
type GuardConfig struct {
	Window    time.Duration `mapstructure:"window"`
	PerClient int           `mapstructure:"per_client"`
	Global    int           `mapstructure:"global"`
	MaxKeys   int           `mapstructure:"max_keys"`
}

// StorageConfig selects the session backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

// SafetyConfig picks how matches are handled on each side of the model:
// off, flag, redact or block.
type SafetyConfig struct {
	InputMode  string `mapstructure:"input_mode"`
	OutputMode string `mapstructure:"output_mode"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8000")
	v.SetDefault("networking.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("networking.read_timeout", "30s")
	v.SetDefault("networking.write_timeout", "120s")
	v.SetDefault("models.default", "google/gemini-2.5-flash")
	v.SetDefault("models.temperature", 0.1)
	v.SetDefault("models.max_tokens", 2048)
	v.SetDefault("sessions.ttl", "5m")
	v.SetDefault("sessions.reap_interval", "10m")
	v.SetDefault("sessions.max_pending", 8)
	v.SetDefault("engine.generation_timeout", "90s")
	v.SetDefault("engine.sentinels", []string{"done"})
	v.SetDefault("guard.window", "1m")
	v.SetDefault("guard.per_client", 0)
	v.SetDefault("guard.global", 0)
	v.SetDefault("guard.max_keys", 10000)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.data_dir", "")
	v.SetDefault("safety.input_mode", string(safety.DefaultInputMode))
	v.SetDefault("safety.output_mode", string(safety.DefaultOutputMode))
}

// New returns a viper instance with defaults and environment overrides
// wired up but no file read.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or from the first contentloop.yaml on
// the search path when path is empty. A missing auto-discovered file is not
// an error. Keyring references are resolved through store when it is non-nil;
// a reference that cannot be resolved is logged and blanked so the provider
// is skipped at wiring time. The second result is the file actually read.
func Load(path string, store secrets.Store) (*Config, string, error) {
	v := New()

	used, err := readConfig(v, path)
	if err != nil {
		return nil, "", err
	}

	if store != nil {
		for key, rerr := range secrets.ResolveViper(v, store) {
			slog.Warn("unresolved secret reference", "key", key, "error", rerr)
			v.Set(key, "")
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, used, err
	}
	return cfg, used, nil
}

// Parse loads configuration from YAML bytes on top of the defaults. It does
// not consult the environment.
func Parse(data []byte) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, looperr.Errorf(looperr.CodeConfigParseInvalidFormat, "parsing config: %v", err)
	}
	return FromViper(v)
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, looperr.Errorf(looperr.CodeConfigParseInvalidFormat, "unmarshalling config: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, looperr.Errorf(looperr.CodeConfigValidateInvalidValue, "validating config: %v", errors.Join(errs...))
	}
	return &cfg, nil
}

func readConfig(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", looperr.Errorf(looperr.CodeConfigLoadReadFailure, "reading config %s: %v", path, err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName("contentloop")
	v.SetConfigType("yaml")
	for _, dir := range SearchPaths() {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", looperr.Errorf(looperr.CodeConfigLoadReadFailure, "reading config: %v", err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate checks the configuration for logical errors and returns every
// problem found.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateSessions()...)
	errs = append(errs, c.validateEngine()...)
	errs = append(errs, c.validateGuard()...)
	errs = append(errs, c.validateSafety()...)

	return errs
}

func invalid(format string, args ...any) error {
	return looperr.Errorf(looperr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q: %v",
				c.Networking.Listen, err))
		} else if port, err := strconv.Atoi(portStr); err != nil {
			errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
		} else if port < 1 || port > 65535 {
			errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
		}
	}

	for i, origin := range c.Networking.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, invalid("networking.cors_origins[%d] must be an absolute origin, got %q", i, origin))
		}
	}

	if c.Networking.ReadTimeout < 0 {
		errs = append(errs, invalid("networking.read_timeout must not be negative, got %s", c.Networking.ReadTimeout))
	}
	if c.Networking.WriteTimeout < 0 {
		errs = append(errs, invalid("networking.write_timeout must not be negative, got %s", c.Networking.WriteTimeout))
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error
	for name, p := range c.Providers {
		if !knownProviders[name] {
			errs = append(errs, invalid("providers.%s is not a supported provider (one of %s)",
				name, strings.Join(ProviderNames(), ", ")))
		}
		if p.Endpoint != "" {
			if u, err := url.Parse(p.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, invalid("providers.%s.endpoint must be an absolute URL, got %q", name, p.Endpoint))
			}
		}
	}
	return errs
}

func (c *Config) validateStorage() []error {
	switch c.Storage.Backend {
	case "memory":
		return nil
	case "sqlite":
		if c.Storage.DataDir == "" {
			return []error{invalid("storage.data_dir is required for the sqlite backend")}
		}
		return nil
	default:
		return []error{invalid("storage.backend must be one of [memory, sqlite], got %q", c.Storage.Backend)}
	}
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.Models.Default == "" {
		errs = append(errs, invalid("models.default must not be empty"))
	} else {
		errs = append(errs, c.checkModelRef("models.default", c.Models.Default)...)
	}

	for i, model := range c.Models.Failover {
		errs = append(errs, c.checkModelRef("models.failover["+strconv.Itoa(i)+"]", model)...)
	}

	if c.Models.Temperature < 0 || c.Models.Temperature > 2 {
		errs = append(errs, invalid("models.temperature must be between 0 and 2, got %g", c.Models.Temperature))
	}
	if c.Models.MaxTokens <= 0 {
		errs = append(errs, invalid("models.max_tokens must be greater than 0, got %d", c.Models.MaxTokens))
	}

	return errs
}

func (c *Config) checkModelRef(field, ref string) []error {
	providerName, model, ok := strings.Cut(ref, "/")
	if !ok || providerName == "" || model == "" {
		return []error{invalid("%s must be in \"provider/model\" format, got %q", field, ref)}
	}
	// A nil providers map means nothing was configured yet (fresh install).
	if c.Providers == nil {
		return nil
	}
	if _, ok := c.Providers[providerName]; !ok {
		return []error{invalid("%s %q references provider %q which is not configured", field, ref, providerName)}
	}
	return nil
}

func (c *Config) validateSessions() []error {
	var errs []error
	if c.Sessions.TTL <= 0 {
		errs = append(errs, invalid("sessions.ttl must be greater than 0, got %s", c.Sessions.TTL))
	}
	if c.Sessions.ReapInterval <= 0 {
		errs = append(errs, invalid("sessions.reap_interval must be greater than 0, got %s", c.Sessions.ReapInterval))
	}
	if c.Sessions.MaxPending <= 0 {
		errs = append(errs, invalid("sessions.max_pending must be greater than 0, got %d", c.Sessions.MaxPending))
	}
	return errs
}

func (c *Config) validateEngine() []error {
	var errs []error
	if c.Engine.GenerationTimeout <= 0 {
		errs = append(errs, invalid("engine.generation_timeout must be greater than 0, got %s", c.Engine.GenerationTimeout))
	}
	for i, s := range c.Engine.Sentinels {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, invalid("engine.sentinels[%d] must not be blank", i))
		}
	}
	return errs
}

func (c *Config) validateGuard() []error {
	var errs []error
	if c.Guard.PerClient < 0 {
		errs = append(errs, invalid("guard.per_client must not be negative, got %d", c.Guard.PerClient))
	}
	if c.Guard.Global < 0 {
		errs = append(errs, invalid("guard.global must not be negative, got %d", c.Guard.Global))
	}
	if c.Guard.MaxKeys < 0 {
		errs = append(errs, invalid("guard.max_keys must not be negative, got %d", c.Guard.MaxKeys))
	}
	if (c.Guard.PerClient > 0 || c.Guard.Global > 0) && c.Guard.Window <= 0 {
		errs = append(errs, invalid("guard.window must be greater than 0 when a budget is set, got %s", c.Guard.Window))
	}
	return errs
}

func (c *Config) validateSafety() []error {
	var errs []error
	if _, err := safety.ParseMode(c.Safety.InputMode); err != nil {
		errs = append(errs, invalid("safety.input_mode must be one of off, flag, redact, block, got %q", c.Safety.InputMode))
	}
	if _, err := safety.ParseMode(c.Safety.OutputMode); err != nil {
		errs = append(errs, invalid("safety.output_mode must be one of off, flag, redact, block, got %q", c.Safety.OutputMode))
	}
	return errs
}

var knownProviders = map[string]bool{
	"anthropic":  true,
	"google":     true,
	"openai":     true,
	"openrouter": true,
}

// ProviderNames lists the provider names accepted under providers.
func ProviderNames() []string {
	return []string{"anthropic", "google", "openai", "openrouter"}
}
