package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/slack-go/slack"

	"github.com/ca-srg/hellobot/internal/config"
	"github.com/ca-srg/hellobot/internal/observability"
	"github.com/ca-srg/hellobot/internal/secrets"
	"github.com/ca-srg/hellobot/internal/slackbot"
)

// app bundles what every run mode needs
type app struct {
	cfg        *config.Config
	client     *slack.Client
	dispatcher *slackbot.Dispatcher
	telemetry  *observability.Telemetry
	logger     *log.Logger
}

// secretsApplier overlays credentials onto cfg; replaced in tests
var secretsApplier = func(ctx context.Context, cfg *config.Config) error {
	loader, err := secrets.NewDefaultLoader(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	return loader.Apply(ctx, cfg)
}

func bootstrap(ctx context.Context, mode config.Mode) (*app, error) {
	logger := log.New(os.Stdout, "hellobot ", log.LstdFlags)

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.SecretsID != "" {
		if err := secretsApplier(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	telemetry, err := observability.Init(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	client := newSlackClient(cfg, mode)
	handler := slackbot.NewMentionHandler(client, logger)
	dispatcher := slackbot.NewMentionDispatcher(handler, logger)

	return &app{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		telemetry:  telemetry,
		logger:     logger,
	}, nil
}

func newSlackClient(cfg *config.Config, mode config.Mode) *slack.Client {
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	// Socket Mode needs the app-level token on the client itself
	if mode == config.ModeSocket {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	return slack.New(cfg.BotToken, opts...)
}

func (a *app) receiver() (*slackbot.Receiver, error) {
	return slackbot.NewReceiver(a.cfg.SigningSecret, a.dispatcher, a.logger)
}

func (a *app) shutdown() {
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		a.logger.Printf("event=shutdown status=error err=%v", err)
	}
}
