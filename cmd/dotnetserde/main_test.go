package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dotnetserde "github.com/moriyoshi/dotnetserde"
	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/internal/config"
)

func newTestBuiltins() (*cli.Builtins, error) {
	return dotnetserde.NewBuiltins()
}

func u32(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

func writeNRBFStringStream(t *testing.T, path string) {
	t.Helper()
	buf := &bytes.Buffer{}
	buf.WriteByte(0)
	buf.Write(u32(1))
	buf.Write(u32(0))
	buf.Write(u32(1))
	buf.Write(u32(0))

	buf.WriteByte(6)
	buf.Write(u32(1))
	buf.WriteByte(5)
	buf.WriteString("hello")

	buf.WriteByte(11)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestScalarBuiltinKnownAndUnknown(t *testing.T) {
	b, err := newTestBuiltins()
	require.NoError(t, err)

	ti, ok := scalarBuiltin(b, "Int32")
	require.True(t, ok)
	assert.Same(t, b.Int32, ti)

	_, ok = scalarBuiltin(b, "NotAType")
	assert.False(t, ok)
}

func TestInspectOneNRBF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.bin")
	writeNRBFStringStream(t, path)

	cmd := &inspectCmd{format: "nrbf"}
	v, err := cmd.inspectOne(path, config.Default())
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestInspectOneUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.bin")
	writeNRBFStringStream(t, path)

	cmd := &inspectCmd{format: "bogus"}
	_, err := cmd.inspectOne(path, config.Default())
	require.Error(t, err)
}
