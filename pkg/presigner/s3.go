package presigner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3DownloadPresigner struct {
	bucketName    string
	presignClient *s3.PresignClient
	now           func() time.Time
}

func (ss *S3DownloadPresigner) SignDownloadURL(ctx context.Context, key string, ttl time.Duration) (SignedLink, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		return SignedLink{}, &SigningError{Key: key, Err: fmt.Errorf("ttl %s exceeds maximum of %s", ttl, MaxTTL)}
	}
	if key == "" {
		return SignedLink{}, &SigningError{Key: key, Err: errors.New("empty key")}
	}

	signedAt := ss.now()
	signedReq, err := ss.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return SignedLink{}, &SigningError{Key: key, Err: fmt.Errorf("signing request: %w", err)}
	}

	reqURL, err := url.Parse(signedReq.URL)
	if err != nil {
		return SignedLink{}, &SigningError{Key: key, Err: fmt.Errorf("parsing signed URL: %w", err)}
	}

	return SignedLink{URL: *reqURL, Expires: signedAt.Add(ttl)}, nil
}

var _ DownloadPresigner = (*S3DownloadPresigner)(nil)

// NewS3DownloadPresigner creates a presigner that signs GET requests for
// objects in bucketName using the credentials the client is configured with.
func NewS3DownloadPresigner(client *s3.Client, bucketName string) *S3DownloadPresigner {
	return &S3DownloadPresigner{
		bucketName:    bucketName,
		presignClient: s3.NewPresignClient(client),
		now:           time.Now,
	}
}

// NewStaticDownloadPresigner creates a presigner that signs with fixed
// credentials against a custom endpoint, e.g. a local MinIO.
//
// Signed download URLs take the form {endpoint}/{bucketName}/{key}
func NewStaticDownloadPresigner(accessKeyID string, secretAccessKey string, endpoint url.URL, region string, bucketName string) (*S3DownloadPresigner, error) {
	if bucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if region == "" {
		region = "us-east-1"
	}
	endpointstr := endpoint.String()

	cfg := aws.Config{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		BaseEndpoint: &endpointstr,
	}

	s3client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.UsePathStyle = true
	})
	return NewS3DownloadPresigner(s3client, bucketName), nil
}
