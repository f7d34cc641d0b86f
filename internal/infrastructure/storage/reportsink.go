// Package storage writes run reports to a local directory or an S3 bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
)

// ReportSink stores a named report under dir and returns where it went.
type ReportSink interface {
	Put(ctx context.Context, dir, name string, data []byte) (string, error)
}

// NewReportSink returns the sink selected by cfg.Sink, "local" by default.
func NewReportSink(ctx context.Context, cfg config.ReportConfig) (ReportSink, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", "local":
		return NewLocalSink(cfg.LocalDir), nil
	case "s3":
		return NewS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown report sink %q", cfg.Sink)
	}
}

// LocalSink writes under a base directory. Absolute dirs bypass the base.
type LocalSink struct {
	baseDir string
}

func NewLocalSink(baseDir string) *LocalSink {
	return &LocalSink{baseDir: baseDir}
}

func (s *LocalSink) Put(_ context.Context, dir, name string, data []byte) (string, error) {
	target := dir
	if !filepath.IsAbs(dir) {
		target = filepath.Join(s.baseDir, dir)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	p := filepath.Join(target, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", name, err)
	}
	return p, nil
}

// S3Sink writes objects under a key prefix of one bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Sink(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "eu-north-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Sink) Put(ctx context.Context, dir, name string, data []byte) (string, error) {
	key := path.Join(s.prefix, strings.TrimPrefix(filepath.ToSlash(dir), "/"), name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
