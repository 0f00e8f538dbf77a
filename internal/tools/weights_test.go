package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.NoError(t, w.Validate())
	assert.InDelta(t, 1.0, w.Semantic+w.Geographic+w.Temporal+w.Attribute, 1e-9)
}

func TestNewRegistry_RejectsBadWeights(t *testing.T) {
	w := DefaultWeights()
	w.Semantic = -0.5
	_, err := NewRegistry(w, nil)
	assert.Error(t, err)
}
