// Package tenant maps request hosts to per-tenant storage and cache
// configuration. The registry is loaded once at startup and is read-only
// afterwards; credential fields hold environment variable names, never
// literal secrets.
package tenant

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/xform-media/xform/common/storage"
	"gopkg.in/yaml.v3"
)

// ErrTenantNotFound is returned when no tenant is registered for a host.
// There is deliberately no default tenant.
var ErrTenantNotFound = errors.New("config not found")

// defaultCacheTTL is applied to max-age and s-maxage when the registry
// entry leaves them unset.
const defaultCacheTTL = "3600"

// Config is one tenant entry. The *Ref fields name environment variables
// that hold the actual values.
type Config struct {
	Name               string `yaml:"name"`
	AccessKeyIDRef     string `yaml:"access_key_id"`
	SecretAccessKeyRef string `yaml:"secret_access_key"`
	BucketRef          string `yaml:"bucket"`
	RegionRef          string `yaml:"region"`
	MaxAge             string `yaml:"max-age"`
	SMaxAge            string `yaml:"s-maxage"`
}

// Credentials dereferences the tenant's environment references into the
// literal values used by the object store client.
func (c *Config) Credentials() storage.Credentials {
	return storage.Credentials{
		AccessKeyID:     os.Getenv(c.AccessKeyIDRef),
		SecretAccessKey: os.Getenv(c.SecretAccessKeyRef),
		Bucket:          os.Getenv(c.BucketRef),
		Region:          os.Getenv(c.RegionRef),
	}
}

// Registry holds all configured tenants keyed by normalized host
type Registry struct {
	sources map[string]*Config
}

// registryFile is the on-disk YAML shape
type registryFile struct {
	Sources map[string]*Config `yaml:"sources"`
}

// Load reads the tenant registry from a YAML file
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("tenant registry %s has no sources", path)
	}

	return NewRegistry(file.Sources), nil
}

// NewRegistry creates a registry from an already-built source map.
// Cache directive defaults are applied here, once; after construction
// the registry and every config in it are read-only.
func NewRegistry(sources map[string]*Config) *Registry {
	for _, cfg := range sources {
		if cfg == nil {
			continue
		}
		if cfg.MaxAge == "" {
			cfg.MaxAge = defaultCacheTTL
		}
		if cfg.SMaxAge == "" {
			cfg.SMaxAge = defaultCacheTTL
		}
	}
	return &Registry{sources: sources}
}

var portSuffix = regexp.MustCompile(`:\d+$`)

// NormalizeHost strips a trailing :<port> from a Host header value
func NormalizeHost(host string) string {
	return portSuffix.ReplaceAllString(host, "")
}

// Resolve looks up the tenant for a raw Host header value. Lookup is by
// exact normalized-host match; a miss is ErrTenantNotFound. The returned
// config always has max-age and s-maxage set. Resolve never mutates the
// registry, so it is safe for concurrent use.
func (r *Registry) Resolve(host string) (*Config, error) {
	cfg, ok := r.sources[NormalizeHost(host)]
	if !ok || cfg == nil {
		return nil, ErrTenantNotFound
	}
	return cfg, nil
}
