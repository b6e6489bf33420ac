package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xform-media/xform/cmd/proxy/service"
	"github.com/xform-media/xform/common/bootstrap"
	"github.com/xform-media/xform/common/imaging"
	"github.com/xform-media/xform/common/negotiate"
	"github.com/xform-media/xform/common/tenant"
)

// ImageHandler is the top-level request coordinator: it resolves the
// tenant, fetches the source object, runs the transform pipeline and
// maps every failure to a caller-visible status.
type ImageHandler struct {
	components *bootstrap.Components
	fetchSvc   *service.FetchService
	pipeline   *service.Pipeline
}

// NewImageHandler creates an image handler
func NewImageHandler(components *bootstrap.Components, fetchSvc *service.FetchService, pipeline *service.Pipeline) *ImageHandler {
	return &ImageHandler{
		components: components,
		fetchSvc:   fetchSvc,
		pipeline:   pipeline,
	}
}

// Transform serves one image request
// GET /*
func (h *ImageHandler) Transform(c echo.Context) error {
	req := c.Request()

	host := req.Host
	if host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Illegal request")
	}

	source, err := h.components.Registry.Resolve(host)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Config not found")
	}

	log := h.components.Logger.WithHost(tenant.NormalizeHost(host)).WithTenant(source.Name)

	// An upstream stage (transport route rules, another middleware) may
	// have set the policy already; never overwrite it.
	headers := c.Response().Header()
	if headers.Get(echo.HeaderContentSecurityPolicy) == "" {
		headers.Set(echo.HeaderContentSecurityPolicy, h.components.Config.Proxy.ContentSecurityPolicy)
	}

	creds := source.Credentials()
	key := strings.TrimPrefix(req.URL.Path, "/")
	mods := modifierMap(c.QueryParams())

	requestedFormat := mods["f"]
	if requestedFormat == "" {
		requestedFormat = mods["format"]
	}
	if requestedFormat == "auto" {
		_, a := mods["a"]
		_, animated := mods["animated"]
		autoFormat := negotiate.Format(req.Header.Get("Accept"), a || animated)
		delete(mods, "f")
		delete(mods, "format")
		if autoFormat != "" {
			mods["format"] = autoFormat
			headers.Add(echo.HeaderVary, "Accept")
		}
	}

	obj, err := h.fetchSvc.Fetch(req.Context(), creds, key)
	if err != nil {
		log.Error("fetch failed", "key", key, "error", err)
		return mapError(err)
	}

	result, err := h.pipeline.Transform(req.Context(), obj.Data, mods, key)
	if err != nil {
		log.Error("transform failed", "key", key, "error", err)
		return mapError(err)
	}

	headers.Set("Cache-Control", fmt.Sprintf("max-age=%s, public, s-maxage=%s", source.MaxAge, source.SMaxAge))
	if obj.ETag != "" {
		headers.Set("ETag", obj.ETag)
	}
	if !obj.LastModified.IsZero() {
		headers.Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}

	return c.Blob(http.StatusOK, contentType(result, obj), result.Data)
}

// contentType picks the response media type: the transformed format
// when the pipeline produced one, else whatever the store declared.
func contentType(result *service.Result, obj *service.FetchedObject) string {
	if result.Format != "" {
		return "image/" + result.Format
	}
	if obj.ContentType != "" {
		return obj.ContentType
	}
	return "application/octet-stream"
}

// mapError converts pipeline and fetch failures to HTTP errors. This is
// the single place internal failure kinds become status codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrObjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	case errors.Is(err, service.ErrStorageConfig):
		return echo.NewHTTPError(http.StatusInternalServerError, "Config error")
	case errors.Is(err, imaging.ErrInvalidImage):
		// A corrupt object in the tenant's bucket is a server-side data
		// problem, not caller input; it stays a 500.
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// modifierMap flattens query parameters to single-valued modifiers.
// Keys present without a value (e.g. ?a) are kept: presence alone is
// meaningful for flag modifiers.
func modifierMap(values map[string][]string) map[string]string {
	mods := make(map[string]string, len(values))
	for name, v := range values {
		if len(v) > 0 {
			mods[name] = v[0]
		} else {
			mods[name] = ""
		}
	}
	return mods
}
