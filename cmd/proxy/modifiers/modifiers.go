// Package modifiers resolves request query parameters into an ordered
// chain of image transform handlers.
package modifiers

import (
	"image/color"
	"sort"

	"github.com/xform-media/xform/common/imaging"
)

// Context is the shared mutable state flowing through one request's
// handler chain. Early handlers stage values (quality, fit, background)
// that later handlers and the final encode step read. It is scoped to a
// single request and never shared across requests.
type Context struct {
	Meta       imaging.Meta
	Quality    int
	Fit        string
	Background color.Color
	Enlarge    bool
}

// NewContext seeds a handler context with the decoded source metadata
func NewContext(meta imaging.Meta) *Context {
	return &Context{Meta: meta}
}

// Handler is one transform operation bound to a modifier name
type Handler struct {
	// Order overrides the modifier name as the chain sort key. Empty
	// means sort by name.
	Order string

	// Apply performs the operation against the session, reading and
	// writing staged values through the shared context.
	Apply func(ctx *Context, sess *imaging.Session, arg string) error
}

// Resolved is a handler matched to a request modifier
type Resolved struct {
	Name    string
	Handler Handler
	Arg     string
}

func (r Resolved) sortKey() string {
	if r.Handler.Order != "" {
		return r.Handler.Order
	}
	return r.Name
}

// Resolve maps a modifier map to its ordered handler chain. Modifiers
// with no registered handler are dropped silently; the rest are sorted
// by (explicit order key, else name) so the application order is total
// and independent of map iteration order. Ordering matters: transforms
// do not commute.
func Resolve(mods map[string]string) []Resolved {
	resolved := make([]Resolved, 0, len(mods))
	for name, arg := range mods {
		handler, ok := registry[name]
		if !ok {
			continue
		}
		resolved = append(resolved, Resolved{Name: name, Handler: handler, Arg: arg})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].sortKey() < resolved[j].sortKey()
	})
	return resolved
}

// Known reports whether a modifier name has a registered handler
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}
