package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVDisabledByDefault(t *testing.T) {
	SetVerbosity(0)
	assert.False(t, V(1).enabled)
}

func TestVEnabledAtOrBelowCurrentVerbosity(t *testing.T) {
	SetVerbosity(2)
	defer SetVerbosity(0)
	assert.True(t, V(1).enabled)
	assert.True(t, V(2).enabled)
	assert.False(t, V(3).enabled)
}

func TestDumpAndPrettyProduceNonEmptyOutput(t *testing.T) {
	type point struct{ X, Y int }
	p := point{X: 1, Y: 2}
	assert.Contains(t, Dump(p), "X: (int) 1")
	assert.Contains(t, Pretty(p), "X:1")
}
