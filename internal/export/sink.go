package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ca-srg/elseql/internal/scanner"
)

const csvContentType = "text/csv; charset=utf-8"

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ClientFactory builds an S3 client on demand.
type ClientFactory func(ctx context.Context) (PutObjectAPI, error)

// Sink is where command output goes. Close flushes it.
type Sink interface {
	io.Writer
	Close() error
	Target() string
}

// Open returns a sink for target: stdout when target is empty or "-", an S3
// object for s3://bucket/key, otherwise a local file. newClient is only called
// for S3 targets.
func Open(ctx context.Context, target string, stdout io.Writer, newClient ClientFactory, logger *zap.Logger) (Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch {
	case target == "" || target == "-":
		return &stdoutSink{w: stdout}, nil
	case scanner.IsS3Path(target):
		bucket, key, err := scanner.ParseS3Path(target)
		if err != nil {
			return nil, err
		}
		if key == "" || key[len(key)-1] == '/' {
			return nil, fmt.Errorf("S3 output needs an object key: %s", target)
		}
		if newClient == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", target)
		}
		client, err := newClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return &s3Sink{ctx: ctx, client: client, bucket: bucket, key: key, logger: logger}, nil
	default:
		return openFile(target)
	}
}

type stdoutSink struct {
	w io.Writer
}

func (s *stdoutSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *stdoutSink) Close() error                { return nil }
func (s *stdoutSink) Target() string              { return "-" }

type fileSink struct {
	*os.File
}

func openFile(path string) (*fileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &fileSink{File: f}, nil
}

func (f *fileSink) Target() string { return f.Name() }

// s3Sink buffers output and uploads it as one object on Close.
type s3Sink struct {
	ctx    context.Context
	client PutObjectAPI
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
	logger *zap.Logger
}

func (s *s3Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("write to closed sink %s", s.Target())
	}
	return s.buf.Write(p)
}

func (s *s3Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(s.buf.Bytes()),
		ContentType: aws.String(csvContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.Target(), err)
	}

	s.logger.Info("uploaded output", zap.String("target", s.Target()), zap.Int("bytes", s.buf.Len()))
	return nil
}

func (s *s3Sink) Target() string { return "s3://" + s.bucket + "/" + s.key }
