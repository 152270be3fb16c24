// Package dotnetserde decodes .NET Remoting Binary Format (NRBF) and WCF
// Data Contract XML payloads into a shared CLI Type Model / CLI Value Model,
// without depending on the .NET runtime.
package dotnetserde

import (
	"io"

	"github.com/moriyoshi/dotnetserde/bridge"
	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/datacontract"
	"github.com/moriyoshi/dotnetserde/nrbf"
)

// DecodeNRBF parses a full NRBF byte stream into its object graph, without
// resolving it into CLI values yet; pass the result to Bridge to do that.
func DecodeNRBF(r io.Reader, opts ...nrbf.Option) (*nrbf.Result, error) {
	d := nrbf.NewDeserializer(opts...)
	return d.Decode(r)
}

// Bridge wraps an NRBF decode result with the object-graph-to-CLI-value
// converter: Root() resolves the stream's declared root object, Get(id)
// resolves an arbitrary one.
func Bridge(result *nrbf.Result) (*bridge.Bridge, error) {
	return bridge.New(result)
}

// DecodeDataContract parses a Data Contract XML document against an
// explicit top-level shape descriptor (there is no self-describing schema
// to infer one from, unlike NRBF's embedded class metadata).
func DecodeDataContract(r io.Reader, builtins *cli.Builtins, descriptor datacontract.MemberDescriptor, opts ...datacontract.Option) (cli.Value, error) {
	dz := datacontract.NewDeserializer(builtins, opts...)
	return dz.Decode(r, descriptor)
}

// NewBuiltins constructs a fresh intrinsic-type registry; both front ends
// take one as an explicit dependency rather than reaching for package-level
// state, so independent decodes never share TypeInstance identity.
func NewBuiltins() (*cli.Builtins, error) {
	return cli.NewBuiltins(cli.NewTypeResolutionContext())
}
