// Package negotiate selects the best output image format for a client's
// Accept header. Pure string functions, no I/O.
package negotiate

import (
	"strconv"
	"strings"
)

// Candidate MIME lists, most-preferred first. These are negotiation
// preferences only; whether the codec can actually encode a format is
// resolved later by the transform pipeline.
var (
	staticCandidates = []string{
		"image/avif",
		"image/webp",
		"image/jpeg",
		"image/png",
		"image/tiff",
		"image/heif",
		"image/gif",
	}

	animatedCandidates = []string{
		"image/webp",
		"image/gif",
	}
)

// Format picks the best output format for the given Accept header,
// returning the bare subtype (e.g. "webp"). When nothing usable matches
// it falls back to "gif" for animated requests and "jpeg" otherwise.
func Format(acceptHeader string, animated bool) string {
	if animated {
		if mime := Best(acceptHeader, animatedCandidates); mime != "" {
			return subtype(mime)
		}
		return "gif"
	}

	if mime := Best(acceptHeader, staticCandidates); mime != "" {
		return subtype(mime)
	}
	return "jpeg"
}

// mediaRange is one parsed entry of an Accept header
type mediaRange struct {
	typ, sub string
	quality  float64
}

// Best returns the candidate MIME type the Accept header prefers most,
// or "" when no candidate is acceptable. Matching is quality-value
// weighted and wildcard-aware; ties on quality are broken by candidate
// order, so candidates act as server preference.
func Best(acceptHeader string, candidates []string) string {
	ranges := parseAccept(acceptHeader)
	if len(ranges) == 0 {
		return ""
	}

	best := ""
	bestQ := 0.0
	for _, candidate := range candidates {
		q := candidateQuality(candidate, ranges)
		if q > bestQ {
			best = candidate
			bestQ = q
		}
	}
	return best
}

// candidateQuality finds the q-value the client assigns to a candidate.
// The most specific matching range wins: exact > type wildcard > full
// wildcard.
func candidateQuality(candidate string, ranges []mediaRange) float64 {
	typ, sub, _ := strings.Cut(candidate, "/")

	q := 0.0
	specificity := -1
	for _, r := range ranges {
		var s int
		switch {
		case r.typ == typ && r.sub == sub:
			s = 2
		case r.typ == typ && r.sub == "*":
			s = 1
		case r.typ == "*" && r.sub == "*":
			s = 0
		default:
			continue
		}
		if s > specificity {
			specificity = s
			q = r.quality
		}
	}
	return q
}

// parseAccept parses an Accept header into media ranges. Malformed
// entries are skipped; an empty or unparseable header yields no ranges.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		mime, params, _ := strings.Cut(part, ";")
		typ, sub, ok := strings.Cut(strings.TrimSpace(mime), "/")
		if !ok || typ == "" || sub == "" {
			continue
		}

		r := mediaRange{
			typ:     strings.ToLower(typ),
			sub:     strings.ToLower(sub),
			quality: 1.0,
		}
		for _, param := range strings.Split(params, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(name) != "q" {
				continue
			}
			if q, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && q >= 0 && q <= 1 {
				r.quality = q
			}
		}

		if r.quality > 0 {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func subtype(mime string) string {
	_, sub, _ := strings.Cut(mime, "/")
	return sub
}
