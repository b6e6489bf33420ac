package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/xform-media/xform/common/logger"
)

// S3Store fetches objects from S3-compatible storage. A client is built
// per call from the tenant's credentials; the SDK's default retry policy
// applies, no additional retries are layered on top.
type S3Store struct {
	log *logger.Logger
}

// NewS3Store creates a new S3-backed object store
func NewS3Store(log *logger.Logger) *S3Store {
	return &S3Store{log: log}
}

// Get retrieves a single object from the tenant's bucket
func (s *S3Store) Get(ctx context.Context, creds Credentials, key string) (*Object, error) {
	client := s3.New(s3.Options{
		Region: creds.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			"",
		),
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(creds.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.normalizeError(err, creds.Bucket, key)
	}

	if out.Body == nil {
		return nil, ErrNoSuchKey
	}

	obj := &Object{Body: out.Body}
	if out.ETag != nil {
		obj.ETag = *out.ETag
	}
	if out.LastModified != nil {
		obj.LastModified = *out.LastModified
	}
	if out.ContentType != nil {
		obj.ContentType = *out.ContentType
	}
	if out.ContentLength != nil {
		obj.ContentLength = *out.ContentLength
	}

	return obj, nil
}

// normalizeError maps SDK failures onto the store's sentinel conditions
func (s *S3Store) normalizeError(err error, bucket, key string) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ErrNoSuchKey
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNoSuchKey
		}
		s.log.Error("storage request failed",
			"bucket", bucket,
			"key", key,
			"code", apiErr.ErrorCode(),
		)
		return fmt.Errorf("%w: %s", ErrUpstream, apiErr.ErrorCode())
	}

	return fmt.Errorf("storage request failed: %w", err)
}
