// Package storage presigns object storage URLs for attachment ciphertext.
// Clients upload and download blobs directly; the relay never proxies bytes.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/courier/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	now = time.Now
)

// Presigner produces time-limited object URLs.
type Presigner interface {
	// PresignPut returns the upload URL and the headers the upload must
	// carry for the signature to hold.
	PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type S3Presigner struct {
	bucket   string
	validity time.Duration

	region, user, password, endpoint string
}

func NewS3Presigner(cfg *sc.Config) *S3Presigner {
	return &S3Presigner{
		bucket:   cfg.S3Bucket,
		validity: cfg.PresignValidityDuration,
		region:   cfg.S3Region,
		user:     cfg.S3RootUser,
		password: cfg.S3RootPassword,
		endpoint: cfg.S3BaseEndpoint,
	}
}

// StorageKey returns a fresh object key partitioned by upload date.
func StorageKey() string {
	d := now()
	return fmt.Sprintf("attachments/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (p *S3Presigner) client(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.user, p.password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	c := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.endpoint)
		// MinIO serves buckets by path.
		o.UsePathStyle = true
	})
	return newS3PresignClient(c), nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, error) {
	pc, err := p.client(ctx)
	if err != nil {
		return "", nil, err
	}

	in := &s3.PutObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(pc, ctx, in, s3.WithPresignExpires(p.validity))
	if err != nil {
		return "", nil, fmt.Errorf("presign put: %w", err)
	}

	fields := map[string]string{}
	for k, v := range req.SignedHeader {
		if k == "Host" || len(v) == 0 {
			continue
		}
		fields[k] = v[0]
	}
	if contentType != "" {
		fields["Content-Type"] = contentType
	}
	return req.URL, fields, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	pc, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{Bucket: aws.String(p.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(p.validity))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
