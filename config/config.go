// Package config loads client settings from defaults, an optional YAML file
// and AUTHCLIENT_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-authclient/observability"
)

const (
	// DefaultFile is read when present and no other source is given.
	DefaultFile = "config.yaml"
	// DefaultEnvPrefix selects environment variables, e.g. AUTHCLIENT_HTTPCLIENT_BASEURL.
	DefaultEnvPrefix = "AUTHCLIENT_"
)

// Auth source types
const (
	AuthNone              = "none"
	AuthStatic            = "static"
	AuthClientCredentials = "clientcredentials"
)

// Config is the root configuration.
type Config struct {
	HTTPClient    HTTPClientConfig     `koanf:"httpclient"`
	Auth          AuthConfig           `koanf:"auth"`
	Log           LogConfig            `koanf:"log"`
	Observability observability.Config `koanf:"observability"`
}

// HTTPClientConfig mirrors the client's tunables.
type HTTPClientConfig struct {
	BaseURL            string            `koanf:"baseurl" validate:"omitempty,url"`
	Timeout            time.Duration     `koanf:"timeout" validate:"gte=0"`
	MaxRetries         int               `koanf:"maxretries" validate:"gte=0,lte=10"`
	RetryDelay         time.Duration     `koanf:"retrydelay" validate:"gte=0"`
	Headers            map[string]string `koanf:"headers"`
	LogPayloads        bool              `koanf:"logpayloads"`
	MaxPayloadLogBytes int               `koanf:"maxpayloadlogbytes" validate:"gte=0"`
	TraceIDHeader      string            `koanf:"traceidheader"`
	W3CTrace           bool              `koanf:"w3ctrace"`
	RateLimit          float64           `koanf:"ratelimit" validate:"gte=0"`
	RateBurst          int               `koanf:"rateburst" validate:"gte=0"`
}

// AuthConfig selects and parameterizes the token source.
type AuthConfig struct {
	Type         string   `koanf:"type" validate:"oneof=none static clientcredentials"`
	Token        string   `koanf:"token" validate:"required_if=Type static"`
	TokenURL     string   `koanf:"tokenurl" validate:"required_if=Type clientcredentials"`
	ClientID     string   `koanf:"clientid" validate:"required_if=Type clientcredentials"`
	ClientSecret string   `koanf:"clientsecret" validate:"required_if=Type clientcredentials"`
	Scopes       []string `koanf:"scopes"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}

type options struct {
	file      string
	required  bool
	data      []byte
	envPrefix string
}

// Option customizes Load.
type Option func(*options)

// WithFile reads path instead of config.yaml. The file must exist.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
		o.required = true
	}
}

// WithBytes reads YAML from data instead of a file.
func WithBytes(data []byte) Option {
	return func(o *options) { o.data = data }
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration (file or bytes)
// 3. Default values (lowest priority)
func Load(opts ...Option) (*Config, error) {
	o := options{file: DefaultFile, envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadYAML(k, &o); err != nil {
		return nil, err
	}

	prefix := o.envPrefix
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: prefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, prefix))
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadBytes is Load(WithBytes(data)).
func LoadBytes(data []byte) (*Config, error) {
	return Load(WithBytes(data))
}

func loadYAML(k *koanf.Koanf, o *options) error {
	if o.data != nil {
		if err := k.Load(rawbytes.Provider(o.data), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
		return nil
	}
	err := k.Load(file.Provider(o.file), yaml.Parser())
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !o.required {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", o.file, err)
}

func defaults() map[string]any {
	return map[string]any{
		"httpclient.timeout":            "30s",
		"httpclient.maxretries":         0,
		"httpclient.retrydelay":         "1s",
		"httpclient.maxpayloadlogbytes": 1024,
		"httpclient.traceidheader":      "X-Request-ID",

		"auth.type": AuthNone,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":  false,
		"observability.endpoint": observability.EndpointStdout,
		"observability.protocol": observability.ProtocolHTTP,
		"observability.logs":     false,
	}
}
