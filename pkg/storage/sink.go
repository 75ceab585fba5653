package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	appconfig "diarykeeper/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink receives finished export archives
type Sink interface {
	// Put stores data under name and returns where it ended up
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// LocalSink writes archives into a directory
type LocalSink struct {
	dir string
}

// NewLocalSink creates the output directory if needed
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

func (s *LocalSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := filepath.Join(s.dir, filepath.Clean("/"+name))
	if err := WriteFileAtomic(dest, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return dest, nil
}

// Dir returns the output directory
func (s *LocalSink) Dir() string {
	return s.dir
}

// PutObjectAPI is the slice of the S3 client the sink needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads archives to a bucket
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink builds an S3 client from the default AWS credential chain
func NewS3Sink(ctx context.Context, cfg appconfig.S3Config) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SinkWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3SinkWithClient wraps an existing client
func NewS3SinkWithClient(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := strings.TrimPrefix(path.Join(s.prefix, name), "/")
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return "application/zip"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// NewSink returns the sink selected by archive.sink
func NewSink(ctx context.Context, cfg *appconfig.Config) (Sink, error) {
	switch cfg.Archive.Sink {
	case "s3":
		return NewS3Sink(ctx, cfg.S3)
	case "local", "":
		return NewLocalSink(cfg.Archive.OutputDir)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Archive.Sink)
	}
}
