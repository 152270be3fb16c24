// Package config loads the decoder's runtime knobs: the things spec.md
// leaves as implementation-defined rather than speaking to directly (max
// nesting depth, DateTime localization, string encoding).
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeOptions controls behavior the wire formats themselves don't pin
// down. Zero value matches spec.md's implicit defaults: no depth limit,
// DateTime values with kind=Local are left as UTC rather than localized to
// the host timezone, and NRBF length-prefixed strings are UTF-8.
type DecodeOptions struct {
	// MaxDepth caps Data Contract XML element nesting; NRBF decoding has no
	// depth limit. Zero means unlimited,
	// matching spec.md §5's note that this implementation performs no
	// cycle detection at decode time.
	MaxDepth int `yaml:"max_depth"`

	// LocalizeLocalDateTime, when true, converts a DateTime whose kind bits
	// mark it Local into the host's local timezone instead of passing it
	// through as UTC-labeled wall-clock time.
	LocalizeLocalDateTime bool `yaml:"localize_local_datetime"`

	// StringEncoding names the encoding NRBF length-prefixed strings are
	// assumed to carry. The wire format is UTF-8 only; this knob exists so
	// a caller can fail fast with a clear message rather than silently
	// misdecoding a stream produced against a different convention.
	StringEncoding string `yaml:"string_encoding"`

	// Debug turns on verbose decode tracing via internal/diag.
	Debug bool `yaml:"debug"`
}

// Default returns the options a bare decode_nrbf/decode_datacontract call
// uses when no configuration is supplied.
func Default() DecodeOptions {
	return DecodeOptions{
		MaxDepth:              0,
		LocalizeLocalDateTime: false,
		StringEncoding:        "utf-8",
		Debug:                 false,
	}
}

// Load reads a DecodeOptions document from r, starting from Default() so an
// incomplete YAML document still yields sane values for the fields it
// omits.
func Load(r io.Reader) (DecodeOptions, error) {
	opts := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return DecodeOptions{}, fmt.Errorf("decoding config: %w", err)
	}
	return opts, nil
}

// LoadFile is a convenience wrapper over Load for a path on disk.
func LoadFile(path string) (DecodeOptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return DecodeOptions{}, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
