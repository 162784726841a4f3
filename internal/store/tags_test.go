package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" AI", "ml", "ai", "", "  ", "Cloud Native"})
	assert.Equal(t, []string{"ai", "ml", "cloud native"}, got)
	assert.Empty(t, NormalizeTags(nil))
}
