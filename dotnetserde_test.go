package dotnetserde

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/datacontract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func TestDecodeNRBFAndBridgeRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0) // SerializedStreamHeader
	buf.Write(u32(1))
	buf.Write(u32(0))
	buf.Write(u32(1))
	buf.Write(u32(0))

	buf.WriteByte(6) // BinaryObjectString
	buf.Write(u32(1))
	buf.WriteByte(5)
	buf.WriteString("hello")

	buf.WriteByte(11) // MessageEnd

	result, err := DecodeNRBF(buf)
	require.NoError(t, err)

	br, err := Bridge(result)
	require.NoError(t, err)

	root, err := br.Root()
	require.NoError(t, err)
	bv, ok := root.(*cli.BasicValue)
	require.True(t, ok)
	assert.Equal(t, "hello", bv.Raw)

	again, err := br.Get(result.RootID)
	require.NoError(t, err)
	assert.Equal(t, root, again)
}

func TestDecodeDataContractEntryPoint(t *testing.T) {
	b, err := NewBuiltins()
	require.NoError(t, err)

	descriptor := datacontract.MemberDescriptor{
		Name:           "Name",
		TypeDescriptor: datacontract.NewBasicTypeDescriptor(b.String),
	}
	v, err := DecodeDataContract(
		bytes.NewReader([]byte(`<Name xmlns="http://schemas.datacontract.org/2004/07/">hello</Name>`)),
		b,
		descriptor,
	)
	require.NoError(t, err)
	bv, ok := v.(*cli.BasicValue)
	require.True(t, ok)
	assert.Equal(t, "hello", bv.Raw)
}
