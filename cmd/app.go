package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appconfig "github.com/ca-srg/elseql/internal/config"
	"github.com/ca-srg/elseql/internal/export"
	"github.com/ca-srg/elseql/internal/logger"
	"github.com/ca-srg/elseql/internal/metrics"
	"github.com/ca-srg/elseql/internal/observability"
	"github.com/ca-srg/elseql/internal/opensearch"
	"github.com/ca-srg/elseql/internal/scanner"
	"github.com/ca-srg/elseql/internal/session"
	commontypes "github.com/ca-srg/elseql/internal/types"
)

type appConfigLoader func() (*commontypes.Config, error)
type s3ClientFactory func(ctx context.Context, region string) (*s3.Client, error)
type secretsClientFactory func(ctx context.Context, region string) (appconfig.SecretsAPI, error)

var (
	loadAppConfig    appConfigLoader      = appconfig.Load
	newS3Client      s3ClientFactory      = scanner.NewS3Client
	initOTelMetrics  func() error         = metrics.InitOTelMetrics
	newSecretsClient secretsClientFactory = func(ctx context.Context, region string) (appconfig.SecretsAPI, error) {
		return appconfig.NewSecretsClient(ctx, region)
	}
)

// app holds everything a command needs once configuration is resolved.
type app struct {
	cfg      *commontypes.Config
	logger   *zap.Logger
	client   *opensearch.Client
	shutdown observability.ShutdownFunc
}

func setupApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if profileName != "" {
		cfg.Profile = profileName
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugMode
	}
	if err := appconfig.ApplyProfile(cfg, ""); err != nil {
		return nil, fmt.Errorf("failed to apply profile: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.PasswordSecretID != "" && cfg.Password == "" {
		secrets, err := newSecretsClient(ctx, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create Secrets Manager client: %w", err)
		}
		if err := appconfig.ResolvePassword(ctx, cfg, secrets); err != nil {
			return nil, err
		}
	}

	shutdown, err := observability.Init(cfg, log)
	if err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
	}
	initMetrics(cfg.StatsDB, log)

	osConfig, err := opensearch.NewConfigFromTypes(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch config: %w", err)
	}
	client, err := opensearch.NewClient(osConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	log.Debug("configuration loaded",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("profile", cfg.Profile),
		zap.Bool("debug", cfg.Debug))

	return &app{cfg: cfg, logger: log, client: client, shutdown: shutdown}, nil
}

// initMetrics opens the stats store and registers its gauge. Failures only
// cost the stats, so they are logged and the command goes on.
func initMetrics(path string, log *zap.Logger) {
	if err := metrics.Init(path, log); err != nil {
		return
	}
	if err := initOTelMetrics(); err != nil {
		log.Warn("invocation gauge disabled", zap.Error(err))
	}
}

// Close flushes telemetry and the stats store.
func (a *app) Close() {
	if a.client != nil {
		a.client.LogMetrics()
	}
	if err := metrics.Close(); err != nil {
		a.logger.Warn("failed to close stats store", zap.Error(err))
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// openSession connects to the engine. A failed health check is printed on out
// and leaves the session in local echo mode.
func (a *app) openSession(ctx context.Context, out io.Writer) *session.Session {
	s := session.Open(logger.ContextWithLogger(ctx, a.logger), a.client, nil, out, a.logger)
	if a.cfg.Debug {
		s.SetDebug(true)
	}
	return s
}

// openSink resolves --output.
func (a *app) openSink(ctx context.Context, stdout io.Writer) (export.Sink, error) {
	factory := func(ctx context.Context) (export.PutObjectAPI, error) {
		return newS3Client(ctx, a.cfg.Region)
	}
	return export.Open(ctx, outputTarget, stdout, factory, a.logger)
}

// newScanner builds a script scanner; S3 is only set up for s3:// paths.
func (a *app) newScanner(ctx context.Context, path string) (*scanner.Scanner, error) {
	if !scanner.IsS3Path(path) {
		return scanner.New(nil), nil
	}
	client, err := newS3Client(ctx, a.cfg.Region)
	if err != nil {
		return nil, err
	}
	return scanner.New(scanner.NewS3Scanner(client, a.logger)), nil
}

func recordMode(opts session.Options) metrics.Mode {
	switch {
	case opts.Validate:
		return metrics.ModeValidate
	case opts.Explain:
		return metrics.ModeExplain
	default:
		return metrics.ModeSearch
	}
}
