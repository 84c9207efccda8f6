package cmd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	appconfig "github.com/ca-srg/elseql/internal/config"
	commontypes "github.com/ca-srg/elseql/internal/types"
)

type DependencyOverrides struct {
	LoadConfig       appConfigLoader
	NewS3Client      s3ClientFactory
	NewSecretsClient secretsClientFactory
}

func OverrideDependencies(overrides DependencyOverrides) func() {
	prevLoadConfig := loadAppConfig
	prevS3 := newS3Client
	prevSecrets := newSecretsClient

	if overrides.LoadConfig != nil {
		loadAppConfig = overrides.LoadConfig
	}
	if overrides.NewS3Client != nil {
		newS3Client = overrides.NewS3Client
	}
	if overrides.NewSecretsClient != nil {
		newSecretsClient = overrides.NewSecretsClient
	}

	return func() {
		loadAppConfig = prevLoadConfig
		newS3Client = prevS3
		newSecretsClient = prevSecrets
	}
}

// Helpers to build default override closures without importing internal types in tests.
func DefaultLoadConfigOverride(cfg *commontypes.Config, err error) appConfigLoader {
	return func() (*commontypes.Config, error) {
		if cfg == nil {
			return nil, err
		}
		copied := *cfg
		return &copied, err
	}
}

func S3ClientOverride(client *s3.Client) s3ClientFactory {
	return func(ctx context.Context, region string) (*s3.Client, error) {
		return client, nil
	}
}

func SecretsClientOverride(client appconfig.SecretsAPI) secretsClientFactory {
	return func(ctx context.Context, region string) (appconfig.SecretsAPI, error) {
		return client, nil
	}
}

// ResetCommandState puts every flag back to its default and clears the
// output writers set by earlier runs.
func ResetCommandState() {
	commands := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range commands {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		c.SetOut(nil)
		c.SetErr(nil)
		c.SetIn(nil)
	}
	rootCmd.SetArgs(nil)
}
