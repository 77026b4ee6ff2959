package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"slack-summarizer/internal/summary"
)

// objectPutter is the slice of the S3 client the sink uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the latest result as a text object.
type S3Sink struct {
	client objectPutter
	bucket string
	key    string
}

// NewS3Sink builds a sink from the default AWS credential chain. region may be empty.
func NewS3Sink(ctx context.Context, bucket, key, region string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Sink(s3.NewFromConfig(awsCfg), bucket, key), nil
}

func newS3Sink(client objectPutter, bucket, key string) *S3Sink {
	if key == "" {
		key = "summary.txt"
	}
	return &S3Sink{client: client, bucket: bucket, key: key}
}

func (s *S3Sink) Save(ctx context.Context, res summary.Result) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        strings.NewReader(res.Text()),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("upload artifact s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }
