package objectstore

import (
	"bytes"
	"context"

	"citibike/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// S3Store reads objects from one bucket. Requests are unsigned, which is all
// the public trip data bucket needs.
type S3Store struct {
	Client s3iface.S3API
	Bucket string
}

func NewS3Store(region, endpoint, bucket string) (*S3Store, error) {
	cfg := aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.AnonymousCredentials)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, domain.ConnectionError{Target: "s3 bucket " + bucket, Err: err}
	}
	return &S3Store{Client: s3.New(sess), Bucket: bucket}, nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	if s.Client == nil {
		return domain.ConnectionError{Target: "s3 bucket " + s.Bucket, Err: errors.New("missing s3 client")}
	}
	_, err := s.Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.Bucket)})
	if err != nil {
		return domain.ConnectionError{Target: "s3 bucket " + s.Bucket, Err: err}
	}
	return nil
}

// Fetch downloads key into memory. Missing keys, missing buckets and empty
// bodies are reported as SourceUnavailableError.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if s.Client == nil {
		return nil, errors.New("missing s3 client")
	}
	result, err := s.Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NotFound":
				return nil, domain.SourceUnavailableError{Key: key, Err: err}
			}
		}
		return nil, errors.Wrapf(err, "fetching S3 object s3://%s/%s", s.Bucket, key)
	}
	if result.Body == nil {
		return nil, domain.SourceUnavailableError{Key: key, Err: errors.New("body not found")}
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, errors.Wrapf(err, "reading S3 object s3://%s/%s", s.Bucket, key)
	}
	if buf.Len() == 0 {
		return nil, domain.SourceUnavailableError{Key: key, Err: errors.New("empty object")}
	}
	return buf.Bytes(), nil
}
