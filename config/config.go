// Package config loads service settings from an optional YAML file and
// SIWX_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/siwx/core"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPAddr         = ":9000"
	DefaultScheme           = core.SchemeSolana
	DefaultStatement        = "SIWS Fields:"
	DefaultChainID          = "mainnet"
	DefaultSignInExpiresIn  = 5 * time.Minute
	DefaultSessionExpiresIn = 30 * time.Minute
	DefaultPruneInterval    = 5 * time.Minute
	DefaultRateLimit        = 10.0
	DefaultRateBurst        = 20
)

// Settings is the process-wide configuration. The two Disable* flags gate
// the mapping lookups and make Settings a ports.Policy.
type Settings struct {
	Domain    string `yaml:"domain"`
	URI       string `yaml:"uri"`
	Statement string `yaml:"statement"`
	ChainID   string `yaml:"chain_id"`
	Scheme    string `yaml:"scheme"`
	Salt      string `yaml:"salt"`

	SignInExpiresIn  time.Duration `yaml:"sign_in_expires_in"`
	SessionExpiresIn time.Duration `yaml:"session_expires_in"`

	DisablePrincipalToKeyMapping bool `yaml:"disable_principal_to_key_mapping"`
	DisableKeyToPrincipalMapping bool `yaml:"disable_key_to_principal_mapping"`

	HTTPAddr      string        `yaml:"http_addr"`
	RedisURL      string        `yaml:"redis_url"`
	PruneInterval time.Duration `yaml:"prune_interval"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
}

// Default returns settings with every optional field filled in.
func Default() Settings {
	return Settings{
		Statement:        DefaultStatement,
		ChainID:          DefaultChainID,
		Scheme:           DefaultScheme,
		SignInExpiresIn:  DefaultSignInExpiresIn,
		SessionExpiresIn: DefaultSessionExpiresIn,
		HTTPAddr:         DefaultHTTPAddr,
		PruneInterval:    DefaultPruneInterval,
		RateLimit:        DefaultRateLimit,
		RateBurst:        DefaultRateBurst,
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (Settings, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Settings{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides replaces fields with any SIWX_* variables that are set.
func ApplyEnvOverrides(cfg *Settings) error {
	str := map[string]*string{
		"SIWX_DOMAIN":    &cfg.Domain,
		"SIWX_URI":       &cfg.URI,
		"SIWX_STATEMENT": &cfg.Statement,
		"SIWX_CHAIN_ID":  &cfg.ChainID,
		"SIWX_SCHEME":    &cfg.Scheme,
		"SIWX_SALT":      &cfg.Salt,
		"SIWX_HTTP_ADDR": &cfg.HTTPAddr,
		"SIWX_REDIS_URL": &cfg.RedisURL,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"SIWX_SIGN_IN_EXPIRES_IN": &cfg.SignInExpiresIn,
		"SIWX_SESSION_EXPIRES_IN": &cfg.SessionExpiresIn,
		"SIWX_PRUNE_INTERVAL":     &cfg.PruneInterval,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	flags := map[string]*bool{
		"SIWX_DISABLE_PRINCIPAL_TO_KEY_MAPPING": &cfg.DisablePrincipalToKeyMapping,
		"SIWX_DISABLE_KEY_TO_PRINCIPAL_MAPPING": &cfg.DisableKeyToPrincipalMapping,
	}
	for name, dst := range flags {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}

	if v, ok := os.LookupEnv("SIWX_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("SIWX_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = f
	}
	if v, ok := os.LookupEnv("SIWX_RATE_BURST"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SIWX_RATE_BURST: %w", err)
		}
		cfg.RateBurst = n
	}
	return nil
}

// Validate reports every missing or inconsistent field.
func (s Settings) Validate() error {
	var errs []error
	if s.Domain == "" {
		errs = append(errs, errors.New("domain is required"))
	}
	if s.URI == "" {
		errs = append(errs, errors.New("uri is required"))
	}
	if s.Salt == "" {
		errs = append(errs, errors.New("salt is required"))
	}
	if strings.ContainsAny(s.Statement, "\r\n") {
		errs = append(errs, errors.New("statement must be a single line"))
	}
	if s.SignInExpiresIn <= 0 {
		errs = append(errs, errors.New("sign_in_expires_in must be positive"))
	}
	if s.SessionExpiresIn <= 0 {
		errs = append(errs, errors.New("session_expires_in must be positive"))
	}
	if s.PruneInterval <= 0 {
		errs = append(errs, errors.New("prune_interval must be positive"))
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		errs = append(errs, errors.New("rate_limit and rate_burst must not be negative"))
	}
	if _, err := core.CodecFor(s.Scheme); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// Codec returns the key codec for the configured scheme.
func (s Settings) Codec() (core.KeyCodec, error) {
	return core.CodecFor(s.Scheme)
}

// MessageSettings extracts the fields embedded in signing messages.
func (s Settings) MessageSettings() core.MessageSettings {
	return core.MessageSettings{
		Domain:    s.Domain,
		Statement: s.Statement,
		URI:       s.URI,
		ChainID:   s.ChainID,
	}
}

func (s Settings) PrincipalToKeyEnabled() bool { return !s.DisablePrincipalToKeyMapping }

func (s Settings) KeyToPrincipalEnabled() bool { return !s.DisableKeyToPrincipalMapping }
