package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// S3Options configures an S3 template registry.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the S3 endpoint, for S3-compatible stores. Setting it
	// switches to path-style addressing.
	Endpoint string
}

// S3Registry serves objects from an S3 bucket.
type S3Registry struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Registry builds a registry using the default AWS credential chain.
func NewS3Registry(ctx context.Context, opts S3Options) (*S3Registry, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 registry requires a bucket")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3RegistryFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3RegistryFromClient wraps an existing client.
func NewS3RegistryFromClient(client *s3.Client, bucket, prefix string) *S3Registry {
	return &S3Registry{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (r *S3Registry) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey := key
	if r.prefix != "" {
		objectKey = r.prefix + "/" + key
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, oerrors.NewNotFoundError(
				fmt.Sprintf("s3://%s/%s not found", r.bucket, objectKey), r.bucket,
				"Check that the bucket holds this release")
		}
		return nil, oerrors.NewConnectivityError(
			fmt.Sprintf("fetching s3://%s/%s: %v", r.bucket, objectKey, err),
			map[string]string{"bucket": r.bucket}, "Check the registry endpoint and credentials")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", r.bucket, objectKey, err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
