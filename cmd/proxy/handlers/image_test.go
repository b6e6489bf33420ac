package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xform-media/xform/cmd/proxy/service"
	"github.com/xform-media/xform/common/bootstrap"
	"github.com/xform-media/xform/common/config"
	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/storage"
	"github.com/xform-media/xform/common/tenant"
)

// fakeStore is an in-memory ObjectStore for handler tests
type fakeStore struct {
	objects map[string]*storage.Object
}

func (f *fakeStore) Get(ctx context.Context, creds storage.Credentials, key string) (*storage.Object, error) {
	obj, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNoSuchKey
	}
	return obj, nil
}

func pngObject(t *testing.T, w, h int) *storage.Object {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(buf.Bytes())),
		ETag:        `"etag-1"`,
		ContentType: "image/png",
	}
}

func testHandler(t *testing.T, store storage.ObjectStore) *ImageHandler {
	t.Helper()

	cfg, err := config.Load("proxy-test")
	require.NoError(t, err)
	log := logger.New("error", "json")

	components := &bootstrap.Components{
		Config: cfg,
		Logger: log,
		Registry: tenant.NewRegistry(map[string]*tenant.Config{
			"cdn.example.com": {Name: "example", MaxAge: "600", SMaxAge: "300"},
		}),
	}

	return NewImageHandler(
		components,
		service.NewFetchService(store, log),
		service.NewPipeline(true, log),
	)
}

func perform(t *testing.T, handler *ImageHandler, target, host string, header http.Header) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = host
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return rec, handler.Transform(c)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.Code
}

func TestTransform_MissingHost(t *testing.T) {
	handler := testHandler(t, &fakeStore{})
	_, err := perform(t, handler, "/a.png", "", nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestTransform_UnknownTenant(t *testing.T) {
	handler := testHandler(t, &fakeStore{})
	_, err := perform(t, handler, "/a.png", "other.example.com", nil)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestTransform_HostPortNormalized(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"a.png": pngObject(t, 4, 4)}}
	handler := testHandler(t, store)

	rec, err := perform(t, handler, "/a.png", "cdn.example.com:8080", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransform_MissingObject(t *testing.T) {
	handler := testHandler(t, &fakeStore{objects: map[string]*storage.Object{}})
	_, err := perform(t, handler, "/missing.png", "cdn.example.com", nil)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestTransform_PassthroughHeaders(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"a.png": pngObject(t, 4, 4)}}
	handler := testHandler(t, store)

	rec, err := perform(t, handler, "/a.png", "cdn.example.com", nil)
	require.NoError(t, err)

	assert.Equal(t, "max-age=600, public, s-maxage=300", rec.Header().Get("Cache-Control"))
	assert.Equal(t, `"etag-1"`, rec.Header().Get("ETag"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get(echo.HeaderContentSecurityPolicy))
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
}

func TestTransform_CSPSetOnceIsNeverOverwritten(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"a.png": pngObject(t, 4, 4)}}
	handler := testHandler(t, store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/a.png", nil)
	req.Host = "cdn.example.com"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderContentSecurityPolicy, "default-src 'self'")

	require.NoError(t, handler.Transform(c))
	assert.Equal(t, "default-src 'self'", rec.Header().Get(echo.HeaderContentSecurityPolicy))
}

func TestTransform_AutoFormatNegotiates(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"a.png": pngObject(t, 4, 4)}}
	handler := testHandler(t, store)

	rec, err := perform(t, handler, "/a.png?f=auto", "cdn.example.com",
		http.Header{"Accept": []string{"image/webp,image/*;q=0.5"}})
	require.NoError(t, err)

	assert.Equal(t, "Accept", rec.Header().Get(echo.HeaderVary))
	assert.Equal(t, "image/webp", rec.Header().Get(echo.HeaderContentType))
}

func TestTransform_AutoFormatWithoutAcceptDefaultsToJpeg(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"a.png": pngObject(t, 4, 4)}}
	handler := testHandler(t, store)

	rec, err := perform(t, handler, "/a.png?f=auto", "cdn.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
}

func TestTransform_NoModifiersStreamsSourceBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	src := buf.Bytes()

	store := &fakeStore{objects: map[string]*storage.Object{"a.png": {
		Body:        io.NopCloser(bytes.NewReader(src)),
		ContentType: "image/png",
	}}}
	handler := testHandler(t, store)

	rec, err := perform(t, handler, "/a.png", "cdn.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, src, rec.Body.Bytes())
}

func TestTransform_CorruptObjectIsServerError(t *testing.T) {
	store := &fakeStore{objects: map[string]*storage.Object{"broken.jpg": {
		Body: io.NopCloser(bytes.NewReader(make([]byte, 16))),
	}}}
	handler := testHandler(t, store)

	// A corrupt stored object maps to 500, not 400: the caller only
	// named a path, the bad bytes belong to the tenant bucket.
	_, err := perform(t, handler, "/broken.jpg?w=10", "cdn.example.com", nil)
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
}

func TestMapError_Statuses(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(t, mapError(service.ErrObjectNotFound)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, mapError(service.ErrStorageConfig)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, mapError(context.DeadlineExceeded)))
}

func TestModifierMap_KeepsValuelessFlags(t *testing.T) {
	mods := modifierMap(map[string][]string{
		"a": {},
		"w": {"100", "200"},
	})
	v, ok := mods["a"]
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, "100", mods["w"])
}
