package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/ca-srg/hellobot/internal/config"
)

// SecretValueGetter is the subset of the Secrets Manager client the loader uses
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SlackCredentials is the JSON layout expected in the secret string
type SlackCredentials struct {
	SigningSecret string `json:"SLACK_SIGNING_SECRET"`
	BotToken      string `json:"SLACK_BOT_TOKEN"`
	AppToken      string `json:"SLACK_APP_TOKEN"`
}

// Loader reads Slack credentials from AWS Secrets Manager
type Loader struct {
	client SecretValueGetter
}

// NewLoader wraps an existing Secrets Manager client
func NewLoader(client SecretValueGetter) *Loader {
	return &Loader{client: client}
}

// NewDefaultLoader builds a loader from the default AWS credential chain
func NewDefaultLoader(ctx context.Context, region string) (*Loader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewLoader(secretsmanager.NewFromConfig(awsCfg)), nil
}

// Fetch returns the credentials stored under secretID
func (l *Loader) Fetch(ctx context.Context, secretID string) (*SlackCredentials, error) {
	if strings.TrimSpace(secretID) == "" {
		return nil, fmt.Errorf("secret id is empty")
	}
	out, err := l.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("get secret %s: %s: %w", secretID, apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("get secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretID)
	}

	var creds SlackCredentials
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return nil, fmt.Errorf("secret %s is not valid JSON: %w", secretID, err)
	}
	return &creds, nil
}

// Apply overlays the non-empty values stored in cfg.SecretsID onto cfg
func (l *Loader) Apply(ctx context.Context, cfg *config.Config) error {
	creds, err := l.Fetch(ctx, cfg.SecretsID)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(creds.SigningSecret); v != "" {
		cfg.SigningSecret = v
	}
	if v := strings.TrimSpace(creds.BotToken); v != "" {
		cfg.BotToken = v
	}
	if v := strings.TrimSpace(creds.AppToken); v != "" {
		cfg.AppToken = v
	}
	return nil
}
