package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the part of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client from the default AWS
// credential chain.
func NewSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// ResolvePassword fills cfg.Password from Secrets Manager when a secret id
// is configured and no password was given directly. The secret is either the
// password itself or a JSON object with a "password" (and optionally
// "username") key.
func ResolvePassword(ctx context.Context, cfg *Config, client SecretsAPI) error {
	if cfg.PasswordSecretID == "" || cfg.Password != "" {
		return nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.PasswordSecretID),
	})
	if err != nil {
		return fmt.Errorf("failed to read secret %s: %w", cfg.PasswordSecretID, err)
	}
	secret := aws.ToString(out.SecretString)
	if secret == "" {
		return fmt.Errorf("secret %s has no string value", cfg.PasswordSecretID)
	}

	if strings.HasPrefix(strings.TrimSpace(secret), "{") {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(secret), &creds); err != nil {
			return fmt.Errorf("failed to parse secret %s: %w", cfg.PasswordSecretID, err)
		}
		if creds.Password == "" {
			return fmt.Errorf("secret %s has no password key", cfg.PasswordSecretID)
		}
		if cfg.Username == "" && cfg.Region == "" {
			cfg.Username = creds.Username
		}
		cfg.Password = creds.Password
		return nil
	}

	cfg.Password = secret
	return nil
}
