package difftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEmptyWhenEqual(t *testing.T) {
	d, err := Diff("a\nb\n", "a\nb\n")
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestDiffNonEmptyWhenDifferent(t *testing.T) {
	d, err := Diff("a\nb\n", "a\nc\n")
	require.NoError(t, err)
	assert.Contains(t, d, "-b")
	assert.Contains(t, d, "+c")
}

func TestNormalizeTrailingNewline(t *testing.T) {
	assert.Equal(t, "a\nb", NormalizeTrailingNewline("a\nb\n"))
	assert.Equal(t, "a\nb", NormalizeTrailingNewline("a\nb"))
}
