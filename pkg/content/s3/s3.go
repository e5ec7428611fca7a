// Package s3 implements the artifact store on S3-compatible object storage,
// used as a shared artifact tier between agents.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/buildbeam/agentfs/pkg/content"
)

// Config configures the S3 artifact store. Endpoint and static credentials
// support S3-compatible storage; leave them empty for real AWS with ambient
// credentials.
type Config struct {
	Bucket    string
	Region    string
	KeyPrefix string

	Endpoint  string
	AccessKey string
	SecretKey string

	// UsePathStyle is required by most S3-compatible endpoints.
	UsePathStyle bool
}

// Store is the S3 implementation of content.Store.
type Store struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// New builds the S3 client and verifies bucket access.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 artifact store requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	s := &Store{client: client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}
	if _, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("verify bucket %s: %w", cfg.Bucket, err)
	}
	return s, nil
}

func (s *Store) key(id content.ID) string {
	return s.keyPrefix + string(id)
}

func (s *Store) Put(ctx context.Context, id content.ID, r io.Reader) (int64, error) {
	if id == "" {
		return 0, content.ErrInvalidID
	}
	// PutObject wants a seekable or fully-known body; artifact pages are
	// small enough to buffer.
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read artifact %s: %w", id, err)
	}
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("put artifact %s: %w", id, err)
	}
	return int64(len(data)), nil
}

func (s *Store) Get(ctx context.Context, id content.ID) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", id, content.ErrNotFound)
		}
		return nil, fmt.Errorf("get artifact %s: %w", id, err)
	}
	return out.Body, nil
}

func (s *Store) Stat(ctx context.Context, id content.ID) (int64, error) {
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%s: %w", id, content.ErrNotFound)
		}
		return 0, fmt.Errorf("stat artifact %s: %w", id, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]content.ID, error) {
	var ids []content.ID
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if len(key) >= len(s.keyPrefix) {
				ids = append(ids, content.ID(key[len(s.keyPrefix):]))
			}
		}
	}
	return ids, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
