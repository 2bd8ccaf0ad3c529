package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Men's Shoes":         "men-s-shoes",
		"  Kitchen & Dining ": "kitchen-dining",
		"USB-C Cables 2m":     "usb-c-cables-2m",
		"!!!":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUniqueSlug_AppendsSuffixOnCollision(t *testing.T) {
	existing := map[string]bool{"shoes": true, "shoes-2": true}

	slug, err := UniqueSlug("Shoes", func(s string) (bool, error) {
		return existing[s], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "shoes-3", slug)
}

func TestUniqueSlug_PropagatesLookupError(t *testing.T) {
	_, err := UniqueSlug("Shoes", func(string) (bool, error) {
		return false, errors.New("db down")
	})
	assert.Error(t, err)
}
