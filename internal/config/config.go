package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
)

// Mode selects which transport delivers Slack events to the bot
type Mode string

const (
	ModeLambda Mode = "lambda"
	ModeHTTP   Mode = "serve"
	ModeSocket Mode = "socket"
)

// Config holds process-wide settings. It is loaded once at start-up and passed
// by reference to the constructors that need it.
type Config struct {
	// Slack credentials
	SigningSecret string `env:"SLACK_SIGNING_SECRET"`
	BotToken      string `env:"SLACK_BOT_TOKEN"`
	// App-level token (xapp-) for Socket Mode
	AppToken        string        `env:"SLACK_APP_TOKEN"`
	APIURL          string        `env:"SLACK_API_URL"`
	ResponseTimeout time.Duration `env:"SLACK_RESPONSE_TIMEOUT,default=5s"`

	// When set, credentials are read from this AWS Secrets Manager secret
	SecretsID string `env:"SLACK_SECRETS_ID"`
	AWSRegion string `env:"AWS_REGION"`

	HTTPAddr string `env:"HTTP_ADDR,default=:3000"`
	HTTPPath string `env:"HTTP_PATH,default=/slack/events"`

	// OpenTelemetry
	OTelEnabled              bool    `env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `env:"OTEL_SERVICE_NAME,default=hellobot"`
	OTelExporterOTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: failed to read env file: %v", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.SigningSecret = strings.TrimSpace(c.SigningSecret)
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.AppToken = strings.TrimSpace(c.AppToken)
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 5 * time.Second
	}
	if c.HTTPPath == "" {
		c.HTTPPath = "/slack/events"
	}
	if !strings.HasPrefix(c.HTTPPath, "/") {
		c.HTTPPath = "/" + c.HTTPPath
	}
}

// Validate checks the settings the given mode depends on
func (c *Config) Validate(mode Mode) error {
	if c.BotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	switch mode {
	case ModeLambda, ModeHTTP:
		if c.SigningSecret == "" {
			return fmt.Errorf("SLACK_SIGNING_SECRET is required in %s mode", mode)
		}
	case ModeSocket:
		if c.AppToken == "" {
			return fmt.Errorf("SLACK_APP_TOKEN is required in %s mode", mode)
		}
		if !strings.HasPrefix(c.AppToken, "xapp-") {
			return fmt.Errorf("SLACK_APP_TOKEN must be an app-level token (xapp-)")
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	if c.APIURL != "" {
		parsed, err := url.Parse(c.APIURL)
		if err != nil {
			return fmt.Errorf("invalid SLACK_API_URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("SLACK_API_URL scheme must be http or https")
		}
		if !strings.HasSuffix(c.APIURL, "/") {
			c.APIURL += "/"
		}
	}

	return nil
}
