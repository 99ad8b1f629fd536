package storage

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/courier/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:                "us-east-1",
		S3RootUser:              "minioadmin",
		S3RootPassword:          "minioadmin",
		S3BaseEndpoint:          "http://127.0.0.1:9000",
		S3Bucket:                "attachments",
		PresignValidityDuration: 5 * time.Minute,
	}
}

// stubAWS replaces the client construction seams and restores them after t.
func stubAWS(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient = origLoad, origNew, origPre
		presignPutObject, presignGetObject = origPut, origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}
	newS3PresignClient = func(*s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func expiresOf(optFns []func(*s3.PresignOptions)) time.Duration {
	var po s3.PresignOptions
	for _, fn := range optFns {
		fn(&po)
	}
	return po.Expires
}

func TestPresignPut_SignsContentType(t *testing.T) {
	stubAWS(t)
	presignPutObject = func(_ *s3.PresignClient, _ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "attachments", *in.Bucket)
		assert.Equal(t, "attachments/k", *in.Key)
		require.NotNil(t, in.ContentType)
		assert.Equal(t, "image/png", *in.ContentType)
		assert.Equal(t, 5*time.Minute, expiresOf(optFns))
		return &v4.PresignedHTTPRequest{
			URL:          "http://minio/put",
			SignedHeader: http.Header{"Host": {"minio"}, "Content-Type": {"image/png"}},
		}, nil
	}

	url, fields, err := NewS3Presigner(testConfig()).PresignPut(context.Background(), "attachments/k", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://minio/put", url)
	assert.Equal(t, map[string]string{"Content-Type": "image/png"}, fields)
}

func TestPresignPut_Error(t *testing.T) {
	stubAWS(t)
	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("signer down")
	}

	_, _, err := NewS3Presigner(testConfig()).PresignPut(context.Background(), "k", "")
	require.ErrorContains(t, err, "presign put: signer down")
}

func TestPresignGet(t *testing.T) {
	stubAWS(t)
	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "attachments/k", *in.Key)
		assert.Equal(t, 5*time.Minute, expiresOf(optFns))
		return &v4.PresignedHTTPRequest{URL: "http://minio/get"}, nil
	}

	url, err := NewS3Presigner(testConfig()).PresignGet(context.Background(), "attachments/k")
	require.NoError(t, err)
	assert.Equal(t, "http://minio/get", url)
}

func TestPresign_ConfigLoadError(t *testing.T) {
	stubAWS(t)
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	p := NewS3Presigner(testConfig())
	_, err := p.PresignGet(context.Background(), "k")
	require.ErrorContains(t, err, "aws config: no creds")
	_, _, err = p.PresignPut(context.Background(), "k", "x")
	require.ErrorContains(t, err, "no creds")
}

func TestStorageKey_DatePartitioned(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })

	k1, k2 := StorageKey(), StorageKey()
	assert.Regexp(t, regexp.MustCompile(`^attachments/2026/3/7/[0-9a-f-]{36}$`), k1)
	assert.NotEqual(t, k1, k2)
}
