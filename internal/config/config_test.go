package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, 0, d.MaxDepth)
	assert.False(t, d.LocalizeLocalDateTime)
	assert.Equal(t, "utf-8", d.StringEncoding)
	assert.False(t, d.Debug)
}

func TestLoadPartialOverridesOnlyGivenFields(t *testing.T) {
	opts, err := Load(strings.NewReader("max_depth: 64\ndebug: true\n"))
	require.NoError(t, err)
	assert.Equal(t, 64, opts.MaxDepth)
	assert.True(t, opts.Debug)
	assert.Equal(t, "utf-8", opts.StringEncoding)
	assert.False(t, opts.LocalizeLocalDateTime)
}

func TestLoadEmptyYieldsDefaults(t *testing.T) {
	opts, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}
