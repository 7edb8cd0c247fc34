package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampler(t *testing.T) {
	t.Parallel()

	assert.Contains(t, sampler(0).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "root:TraceIDRatioBased{0.25}")
}
