// Package svg optimizes and sanitizes SVG documents. The sanitization
// plugin is always applied first, regardless of configuration, so an
// optimized SVG never carries script content.
package svg

import (
	"regexp"
	"strings"
	"sync"
)

// Plugin transforms an SVG document, returning the rewritten text
type Plugin func(string) string

// Options configure an optimization pass. When Plugins is nil the
// default optimization set is used.
type Options struct {
	Plugins []Plugin
}

// sanitizers are compiled once on first use and shared read-only across
// all requests.
var (
	sanitizeOnce sync.Once

	reScript    *regexp.Regexp
	reEventAttr *regexp.Regexp
	reJSHref    *regexp.Regexp
	reComment   *regexp.Regexp
	reDoctype   *regexp.Regexp
	reMetadata  *regexp.Regexp
	reInterTag  *regexp.Regexp
)

func compileSanitizers() {
	reScript = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>|<script\b[^>]*/>`)
	reEventAttr = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	reJSHref = regexp.MustCompile(`(?i)\s(href|xlink:href)\s*=\s*("javascript:[^"]*"|'javascript:[^']*')`)
	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	reDoctype = regexp.MustCompile(`(?is)<!DOCTYPE[^>]*>|<\?xml[^>]*\?>`)
	reMetadata = regexp.MustCompile(`(?is)<metadata\b[^>]*>.*?</metadata\s*>`)
	reInterTag = regexp.MustCompile(`>\s+<`)
}

// XSS strips script elements, event-handler attributes and javascript:
// URLs from a document.
func XSS(text string) string {
	sanitizeOnce.Do(compileSanitizers)
	text = reScript.ReplaceAllString(text, "")
	text = reEventAttr.ReplaceAllString(text, "")
	text = reJSHref.ReplaceAllString(text, "")
	return text
}

// StripComments removes XML comments
func StripComments(text string) string {
	sanitizeOnce.Do(compileSanitizers)
	return reComment.ReplaceAllString(text, "")
}

// StripDeclarations removes the XML declaration and doctype
func StripDeclarations(text string) string {
	sanitizeOnce.Do(compileSanitizers)
	return reDoctype.ReplaceAllString(text, "")
}

// StripMetadata removes metadata elements
func StripMetadata(text string) string {
	sanitizeOnce.Do(compileSanitizers)
	return reMetadata.ReplaceAllString(text, "")
}

// CollapseWhitespace collapses runs of whitespace between tags
func CollapseWhitespace(text string) string {
	sanitizeOnce.Do(compileSanitizers)
	return strings.TrimSpace(reInterTag.ReplaceAllString(text, "><"))
}

// defaultPlugins is the optimization set applied when the caller does
// not configure its own.
func defaultPlugins() []Plugin {
	return []Plugin{StripComments, StripDeclarations, StripMetadata, CollapseWhitespace}
}

// Optimize runs the sanitizer followed by the configured (or default)
// optimization plugins.
func Optimize(text string, opts Options) (string, error) {
	plugins := opts.Plugins
	if plugins == nil {
		plugins = defaultPlugins()
	}

	text = XSS(text)
	for _, plugin := range plugins {
		text = plugin(text)
	}
	return text, nil
}
