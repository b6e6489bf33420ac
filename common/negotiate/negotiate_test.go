package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Static(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"webp preferred", "image/webp,image/*;q=0.5", "webp"},
		{"chrome default", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8", "avif"},
		{"exact jpeg", "image/jpeg", "jpeg"},
		{"wildcard picks server preference", "image/*", "avif"},
		{"full wildcard picks server preference", "*/*", "avif"},
		{"no candidate matches", "text/html,application/xml", "jpeg"},
		{"empty header", "", "jpeg"},
		{"q zero excludes", "image/avif;q=0,image/webp", "webp"},
		{"q ordering wins", "image/gif;q=0.9,image/png;q=0.4", "gif"},
		{"malformed entries skipped", "garbage,image/png", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.accept, false))
		})
	}
}

func TestFormat_Animated(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"webp acceptable", "image/webp,image/gif", "webp"},
		{"gif only", "image/gif", "gif"},
		{"no candidate matches", "text/html", "gif"},
		{"empty header", "", "gif"},
		{"static formats ignored", "image/avif,image/jpeg", "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.accept, true))
		})
	}
}

func TestFormat_Deterministic(t *testing.T) {
	accept := "image/webp;q=0.8,image/png;q=0.8"
	first := Format(accept, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Format(accept, false))
	}
	// Equal q-values resolve by candidate order: webp outranks png
	assert.Equal(t, "webp", first)
}

func TestBest_NoCandidates(t *testing.T) {
	assert.Equal(t, "", Best("image/webp", nil))
}

func TestBest_SpecificityBeatsWildcardEntry(t *testing.T) {
	// The exact range's q applies even though a broader wildcard allows more
	assert.Equal(t, "image/png", Best("image/png,image/*;q=0.1", []string{"image/webp", "image/png"}))
}
