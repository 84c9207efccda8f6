package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:9200", cfg.Endpoint)
		assert.Equal(t, 10.0, cfg.RateLimit)
		assert.Equal(t, 20, cfg.RateBurst)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 30*time.Second, cfg.ConnectionTimeout)
		assert.Equal(t, "cli", cfg.LogEnv)
		assert.Equal(t, "elseql", cfg.OTelServiceName)
		assert.False(t, cfg.Debug)
	})

	t.Run("parses overrides", func(t *testing.T) {
		t.Setenv("ELSEQL_ENDPOINT", "https://search.example.com/")
		t.Setenv("ELSEQL_USERNAME", "reader")
		t.Setenv("ELSEQL_DEBUG", "true")
		t.Setenv("ELSEQL_RETRY_DELAY", "250ms")
		t.Setenv("ELSEQL_MAX_RETRIES", "50")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://search.example.com", cfg.Endpoint)
		assert.Equal(t, "reader", cfg.Username)
		assert.True(t, cfg.Debug)
		assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
		assert.Equal(t, 10, cfg.MaxRetries, "retries are clamped")
	})

	t.Run("rejects endpoint without scheme", func(t *testing.T) {
		t.Setenv("ELSEQL_ENDPOINT", "localhost:9200")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ELSEQL_ENDPOINT")
	})

	t.Run("rejects basic auth with SigV4", func(t *testing.T) {
		t.Setenv("ELSEQL_ENDPOINT", "https://search.example.com")
		t.Setenv("ELSEQL_USERNAME", "reader")
		t.Setenv("ELSEQL_REGION", "us-east-1")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("rejects zero rate limit", func(t *testing.T) {
		t.Setenv("ELSEQL_RATE_LIMIT", "0")

		_, err := Load()
		require.Error(t, err)
	})
}

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleProfiles = `
default: local
profiles:
  local:
    endpoint: http://localhost:9200
  prod:
    endpoint: https://search.example.com/
    region: us-east-1
  shared:
    endpoint: https://shared.example.com
    username: analyst
    password_secret_id: elseql/shared
    insecure_skip_tls: true
`

func TestApplyProfile(t *testing.T) {
	path := writeProfiles(t, sampleProfiles)

	t.Run("named profile", func(t *testing.T) {
		cfg := &Config{Endpoint: "http://other:9200", Username: "env-user", ProfilesFile: path}
		require.NoError(t, ApplyProfile(cfg, "prod"))

		assert.Equal(t, "https://search.example.com", cfg.Endpoint)
		assert.Equal(t, "us-east-1", cfg.Region)
		assert.Empty(t, cfg.Username)
		assert.Equal(t, "prod", cfg.Profile)
	})

	t.Run("default profile", func(t *testing.T) {
		cfg := &Config{Endpoint: "http://other:9200", ProfilesFile: path}
		require.NoError(t, ApplyProfile(cfg, ""))

		assert.Equal(t, "http://localhost:9200", cfg.Endpoint)
		assert.Equal(t, "local", cfg.Profile)
	})

	t.Run("profile from environment", func(t *testing.T) {
		cfg := &Config{ProfilesFile: path, Profile: "shared"}
		require.NoError(t, ApplyProfile(cfg, ""))

		assert.Equal(t, "analyst", cfg.Username)
		assert.Equal(t, "elseql/shared", cfg.PasswordSecretID)
		assert.True(t, cfg.InsecureSkipTLS)
	})

	t.Run("unknown profile", func(t *testing.T) {
		cfg := &Config{ProfilesFile: path}
		err := ApplyProfile(cfg, "staging")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local, prod, shared")
	})

	t.Run("missing file leaves config alone", func(t *testing.T) {
		cfg := &Config{Endpoint: "http://other:9200", ProfilesFile: filepath.Join(t.TempDir(), "none.yaml")}
		require.NoError(t, ApplyProfile(cfg, ""))
		assert.Equal(t, "http://other:9200", cfg.Endpoint)
	})
}

func TestLoadProfilesValidates(t *testing.T) {
	_, err := LoadProfiles(writeProfiles(t, "profiles:\n  bad:\n    endpoint: ftp://x\n"))
	require.Error(t, err)

	_, err = LoadProfiles(writeProfiles(t, "default: nope\nprofiles: {}\n"))
	require.Error(t, err)

	_, err = LoadProfiles(writeProfiles(t, "profiles: [\n"))
	require.Error(t, err)
}

type fakeSecrets struct {
	value string
	err   error
	calls int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: aws.String(f.value)}, nil
}

func TestResolvePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("plain secret", func(t *testing.T) {
		cfg := &Config{PasswordSecretID: "elseql/pw"}
		require.NoError(t, ResolvePassword(ctx, cfg, &fakeSecrets{value: "s3cret"}))
		assert.Equal(t, "s3cret", cfg.Password)
	})

	t.Run("json secret", func(t *testing.T) {
		cfg := &Config{PasswordSecretID: "elseql/pw"}
		require.NoError(t, ResolvePassword(ctx, cfg, &fakeSecrets{value: `{"username": "svc", "password": "pw"}`}))
		assert.Equal(t, "svc", cfg.Username)
		assert.Equal(t, "pw", cfg.Password)
	})

	t.Run("explicit password wins", func(t *testing.T) {
		secrets := &fakeSecrets{value: "ignored"}
		cfg := &Config{PasswordSecretID: "elseql/pw", Password: "given"}
		require.NoError(t, ResolvePassword(ctx, cfg, secrets))
		assert.Equal(t, "given", cfg.Password)
		assert.Zero(t, secrets.calls)
	})

	t.Run("lookup failure", func(t *testing.T) {
		cfg := &Config{PasswordSecretID: "elseql/pw"}
		err := ResolvePassword(ctx, cfg, &fakeSecrets{err: errors.New("AccessDenied")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("json without password", func(t *testing.T) {
		cfg := &Config{PasswordSecretID: "elseql/pw"}
		require.Error(t, ResolvePassword(ctx, cfg, &fakeSecrets{value: `{"username": "svc"}`}))
	})
}
