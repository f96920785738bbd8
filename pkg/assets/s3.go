package assets

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the slice of the S3 client the source uses. Tests substitute a
// fake; production passes *s3.Client.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads assets from an S3 bucket under a key prefix.
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	src := assets.NewS3Source(s3.NewFromConfig(cfg), "my-bucket", "templates/")
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source creates an S3-backed source. The prefix is prepended to every
// name, so Load(ctx, "badge.html") fetches the key "templates/badge.html"
// when prefix is "templates/".
func NewS3Source(client *s3.Client, bucket, prefix string) *S3Source {
	return newS3Source(client, bucket, prefix)
}

func newS3Source(client s3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Load implements Source. A missing key maps to ErrNotFound; every other
// S3 failure surfaces as-is.
func (s *S3Source) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("assets: s3 get %q: %w", s.prefix+name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("assets: s3 read %q: %w", s.prefix+name, err)
	}
	return data, nil
}
