package classname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleName(t *testing.T) {
	info, err := Parse("System.String")
	require.NoError(t, err)
	assert.Equal(t, "System.String", info.Name)
	assert.Empty(t, info.Parameters)
	assert.Nil(t, info.Library)
}

func TestParseGenericArity(t *testing.T) {
	info, err := Parse("System.Collections.Generic.List`1[[System.Int32, mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089]]")
	require.NoError(t, err)
	assert.Equal(t, "System.Collections.Generic.List", info.Name)
	require.Len(t, info.Parameters, 1)
	param := info.Parameters[0]
	assert.Equal(t, "System.Int32", param.Name)
	require.NotNil(t, param.Library)
	assert.Equal(t, "mscorlib", param.Library.Name)
	assert.Equal(t, "4.0.0.0", param.Library.Version)
	assert.Equal(t, "neutral", param.Library.Culture)
	assert.True(t, param.Library.HasPublicKeyToken)
	assert.Equal(t, "b77a5c561934e089", param.Library.PublicKeyToken)
}

func TestParseNestedGenericArity(t *testing.T) {
	info, err := Parse("System.Collections.Generic.Dictionary`2[[System.String],[System.Int32]]")
	require.NoError(t, err)
	require.Len(t, info.Parameters, 2)
	assert.Equal(t, "System.String", info.Parameters[0].Name)
	assert.Equal(t, "System.Int32", info.Parameters[1].Name)
}

func TestParseUnclosedBracketIsInvalid(t *testing.T) {
	_, err := Parse("System.Collections.Generic.List`1[[System.Int32")
	require.Error(t, err)
}

func TestSplitNamespaceAndName(t *testing.T) {
	ns, name, err := SplitNamespaceAndName("System.Collections.Generic.List")
	require.NoError(t, err)
	assert.Equal(t, "System.Collections.Generic", ns)
	assert.Equal(t, "List", name)
}

func TestSplitNamespaceAndNameNoDot(t *testing.T) {
	ns, name, err := SplitNamespaceAndName("Foo")
	require.NoError(t, err)
	assert.Equal(t, "", ns)
	assert.Equal(t, "Foo", name)
}

func TestSplitNamespaceAndNameEmptyIsInvalid(t *testing.T) {
	_, _, err := SplitNamespaceAndName("")
	require.Error(t, err)
}

func TestParsePropertiesLeadingItemsThenMappings(t *testing.T) {
	csv := []any{"mscorlib", "Version=4.0.0.0", "Culture=neutral", "PublicKeyToken=null"}
	repr, err := ParseProperties(csv)
	require.NoError(t, err)
	assert.Equal(t, []string{"mscorlib"}, repr.Items)
	assert.Equal(t, "4.0.0.0", repr.Mappings["Version"])
	assert.Equal(t, "neutral", repr.Mappings["Culture"])
	assert.Equal(t, "null", repr.Mappings["PublicKeyToken"])
}

func TestBuildLibraryInfoFromPropertyDict(t *testing.T) {
	repr, err := ParseProperties([]any{"mscorlib", "Version=4.0.0.0", "Culture=neutral"})
	require.NoError(t, err)
	lib, err := BuildLibraryInfoFromPropertyDict(repr)
	require.NoError(t, err)
	assert.Equal(t, "mscorlib", lib.Name)
	assert.False(t, lib.HasPublicKeyToken)
}
