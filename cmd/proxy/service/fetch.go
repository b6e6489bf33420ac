package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/storage"
)

// Failure kinds surfaced by the fetch stage
var (
	// ErrObjectNotFound indicates the requested key does not exist
	ErrObjectNotFound = errors.New("file not found")

	// ErrStorageConfig indicates the store rejected the request for a
	// reason other than a missing key (credentials, bucket, region)
	ErrStorageConfig = errors.New("config error")
)

// FetchedObject is a fully buffered source image with its cache
// validators. Owned exclusively by the request that fetched it.
type FetchedObject struct {
	Data          []byte
	ETag          string
	LastModified  time.Time
	ContentType   string
	ContentLength int64
}

// FetchService resolves logical paths against a tenant's object store
// and normalizes retrieval failures. Every request re-fetches; there is
// no caching layer here.
type FetchService struct {
	store storage.ObjectStore
	log   *logger.Logger
}

// NewFetchService creates a fetch service
func NewFetchService(store storage.ObjectStore, log *logger.Logger) *FetchService {
	return &FetchService{
		store: store,
		log:   log,
	}
}

// Fetch retrieves one object using the tenant's resolved credentials.
// Validator metadata is passed through from the store unmodified.
func (s *FetchService) Fetch(ctx context.Context, creds storage.Credentials, key string) (*FetchedObject, error) {
	obj, err := s.store.Get(ctx, creds, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNoSuchKey):
			return nil, ErrObjectNotFound
		case errors.Is(err, storage.ErrUpstream):
			return nil, fmt.Errorf("%w: %v", ErrStorageConfig, err)
		}
		return nil, err
	}

	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}

	s.log.Debug("fetched object",
		"key", key,
		"bytes", len(data),
		"content_type", obj.ContentType,
	)

	return &FetchedObject{
		Data:          data,
		ETag:          obj.ETag,
		LastModified:  obj.LastModified,
		ContentType:   obj.ContentType,
		ContentLength: obj.ContentLength,
	}, nil
}
