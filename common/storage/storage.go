// Package storage provides the object store client used to retrieve
// source images from a tenant's bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel conditions surfaced by object store implementations
var (
	// ErrNoSuchKey indicates the requested key does not exist in the bucket
	ErrNoSuchKey = errors.New("no such key")

	// ErrUpstream indicates the store answered with an unexpected non-2xx
	// condition (bad credentials, missing bucket, wrong region)
	ErrUpstream = errors.New("unexpected storage response")
)

// Credentials holds the resolved per-tenant storage access values
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
}

// Object is a successful retrieval. Body must be read once and closed.
// Validator fields are passed through from the store unmodified; zero
// values mean the store did not report them.
type Object struct {
	Body          io.ReadCloser
	ETag          string
	LastModified  time.Time
	ContentType   string
	ContentLength int64
}

// ObjectStore retrieves objects from a tenant bucket. Implementations
// must surface a missing key as ErrNoSuchKey, distinguishable from
// generic failure.
type ObjectStore interface {
	Get(ctx context.Context, creds Credentials, key string) (*Object, error)
}
