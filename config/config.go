// Package config loads client settings from defaults, an optional YAML file
// and LIGHTUP_ environment variables, and turns them into client options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/WaelHoury/lightup"
)

// DefaultEnvPrefix is the prefix of environment variables read by Load.
// A double underscore separates nested keys: LIGHTUP_BACKOFF__JITTER.
const DefaultEnvPrefix = "LIGHTUP_"

// Backoff strategy names accepted in Settings.Backoff.Strategy.
const (
	StrategyExponential        = "exponential"
	StrategyExponentialJitter  = "exponential_jitter"
	StrategyDecorrelatedJitter = "decorrelated_jitter"
)

// Settings mirrors the client defaults in a file and env friendly shape.
type Settings struct {
	BaseURL               string            `koanf:"base_url" validate:"omitempty,url"`
	Timeout               time.Duration     `koanf:"timeout" validate:"gte=0"`
	Headers               map[string]string `koanf:"headers"`
	MaxRetries            int               `koanf:"max_retries" validate:"gte=0,lte=100"`
	RetryDelay            time.Duration     `koanf:"retry_delay" validate:"gte=0"`
	MaxRetryDelay         time.Duration     `koanf:"max_retry_delay" validate:"gte=0"`
	MaxConcurrentRequests int               `koanf:"max_concurrent_requests" validate:"gte=1,lte=10000"`
	ResponseType          string            `koanf:"response_type" validate:"oneof=json text bytes"`

	Backoff   BackoffSettings   `koanf:"backoff"`
	RateLimit RateLimitSettings `koanf:"rate_limit"`
	Debug     DebugSettings     `koanf:"debug"`
}

type BackoffSettings struct {
	Strategy string  `koanf:"strategy" validate:"oneof=exponential exponential_jitter decorrelated_jitter"`
	Jitter   float64 `koanf:"jitter" validate:"gte=0,lte=1"`
}

type RateLimitSettings struct {
	Enabled  bool          `koanf:"enabled"`
	Burst    int           `koanf:"burst" validate:"required_if=Enabled true,gte=0"`
	Interval time.Duration `koanf:"interval" validate:"required_if=Enabled true,gte=0"`
}

type DebugSettings struct {
	Enabled bool   `koanf:"enabled"`
	Level   string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty  bool   `koanf:"pretty"`
}

// Loader reads Settings. An empty Path skips the YAML layer and an empty
// EnvPrefix skips the environment layer.
type Loader struct {
	Path      string
	EnvPrefix string
}

// Load reads settings from path (optional) and LIGHTUP_ variables.
func Load(path string) (*Settings, error) {
	return Loader{Path: path, EnvPrefix: DefaultEnvPrefix}.Load()
}

// Load merges, with increasing priority, the defaults, the YAML file and the
// environment, then validates the result.
func (l Loader) Load() (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if l.Path != "" {
		if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.Path, err)
		}
	}

	if l.EnvPrefix != "" {
		prefix := l.EnvPrefix
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.TrimPrefix(key, prefix)
				return strings.ReplaceAll(strings.ToLower(key), "__", "."), value
			},
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func defaults() map[string]any {
	return map[string]any{
		"timeout":                 "5s",
		"max_retries":             3,
		"retry_delay":             "1s",
		"max_retry_delay":         "0s",
		"max_concurrent_requests": 10,
		"response_type":           string(lightup.ResponseTypeJSON),
		"backoff.strategy":        StrategyExponential,
		"backoff.jitter":          0.1,
		"rate_limit.enabled":      false,
		"debug.enabled":           false,
		"debug.level":             "debug",
	}
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid settings: %s: %w", strings.Join(fields, "; "), err)
		}
		return err
	}

	if s.MaxRetryDelay > 0 && s.MaxRetryDelay < s.RetryDelay {
		return fmt.Errorf("invalid settings: max_retry_delay %s is below retry_delay %s", s.MaxRetryDelay, s.RetryDelay)
	}
	return nil
}

// Options converts the settings into client options.
func (s *Settings) Options() []lightup.Option {
	opts := []lightup.Option{
		lightup.WithTimeout(s.Timeout),
		lightup.WithMaxRetries(s.MaxRetries),
		lightup.WithRetryDelay(s.RetryDelay),
		lightup.WithMaxRetryDelay(s.MaxRetryDelay),
		lightup.WithMaxConcurrentRequests(s.MaxConcurrentRequests),
		lightup.WithResponseType(lightup.ResponseType(s.ResponseType)),
		lightup.WithBackoffStrategy(backoffStrategy(s.Backoff.Strategy)),
		lightup.WithJitter(s.Backoff.Jitter),
	}
	if s.BaseURL != "" {
		opts = append(opts, lightup.WithBaseURL(s.BaseURL))
	}
	if len(s.Headers) > 0 {
		opts = append(opts, lightup.WithHeaders(s.Headers))
	}
	if s.RateLimit.Enabled {
		opts = append(opts, lightup.WithRateLimiter(s.RateLimit.Burst, s.RateLimit.Interval))
	}
	if s.Debug.Enabled {
		opts = append(opts, lightup.WithDebug(), lightup.WithZerolog(s.Debug.logger()))
	}
	return opts
}

func backoffStrategy(name string) lightup.BackoffStrategy {
	switch name {
	case StrategyExponentialJitter:
		return lightup.ExponentialJitter
	case StrategyDecorrelatedJitter:
		return lightup.DecorrelatedJitter
	default:
		return lightup.Exponential
	}
}

func (d DebugSettings) logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(d.Level)
	if err != nil {
		level = zerolog.DebugLevel
	}

	var l zerolog.Logger
	if d.Pretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.With().Timestamp().Logger().Level(level)
}
