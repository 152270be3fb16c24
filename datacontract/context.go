package datacontract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// Option customizes a Deserializer.
type Option func(*deserializerConfig)

type deserializerConfig struct {
	maxDepth int
}

// WithMaxDepth bounds how deeply XML elements may nest before decoding is
// aborted with MaxDepthExceeded. Zero (the default) means unbounded.
func WithMaxDepth(n int) Option {
	return func(c *deserializerConfig) { c.maxDepth = n }
}

// deserializationContext is the concrete Context: it holds the builtins
// registry, the XSD lexical serializer registry, and the fixed builtin
// CLI-type-name -> descriptor/XSD-type-name tables the decoder consults
// whenever a member's shape isn't pinned down by a caller-supplied
// descriptor.
type deserializationContext struct {
	builtins        *cli.Builtins
	xsDeserializer  *xsDataSerializerRegistry
	builtinTypeDesc map[string]TypeDescriptor
}

// newContext builds a Context bound to one decode: the builtin tables are
// constructed fresh each time so the TypeDescriptor entries reference the
// same *cli.TypeInstance identities the rest of this decode's builtins use
// (descriptor CLI-type equality checks in the XSD serializers rely on
// pointer identity, not structural equality).
func newContext(builtins *cli.Builtins) *deserializationContext {
	c := &deserializationContext{
		builtins:       builtins,
		xsDeserializer: buildDefaultXSDataSerializerRegistry(builtins),
	}
	// NOTE: the Uint16/Uint32/Uint64 keys below intentionally do not match
	// the CLI type names UInt16/UInt32/UInt64 (capital I). This reproduces
	// an upstream typo: those three types always fall through to the
	// CompositeTypeDescriptor default below rather than resolving through
	// this table.
	c.builtinTypeDesc = map[string]TypeDescriptor{
		"IntPtr":   NewSingletonTypeDescriptor(builtins.Int64),
		"UIntPtr":  NewSingletonTypeDescriptor(builtins.UInt64),
		"SByte":    NewBasicTypeDescriptor(builtins.SByte),
		"Int16":    NewBasicTypeDescriptor(builtins.Int16),
		"Int32":    NewBasicTypeDescriptor(builtins.Int32),
		"Int64":    NewBasicTypeDescriptor(builtins.Int64),
		"Byte":     NewBasicTypeDescriptor(builtins.Byte),
		"Uint16":   NewBasicTypeDescriptor(builtins.UInt16),
		"Uint32":   NewBasicTypeDescriptor(builtins.UInt32),
		"Uint64":   NewBasicTypeDescriptor(builtins.UInt64),
		"Single":   NewBasicTypeDescriptor(builtins.Single),
		"Double":   NewBasicTypeDescriptor(builtins.Double),
		"String":   NewBasicTypeDescriptor(builtins.String),
		"DateTime": NewBasicTypeDescriptor(builtins.DateTime),
		"TimeSpan": NewBasicTypeDescriptor(builtins.TimeSpan),
	}
	return c
}

func (c *deserializationContext) TypeDescriptorFromCLIType(cliType *cli.TypeInstance) (TypeDescriptor, error) {
	namespace := cliType.DerivedFrom.Namespace.String()
	name := cliType.DerivedFrom.Name

	switch {
	case namespace == "System.Collections" && name == "ArrayList":
		return NewArrayTypeDescriptor(cliType, c.builtins.Object, nil), nil
	case namespace == "System.Collections.Generic" && name == "List":
		params := cliType.DerivedFrom.ResolvedParameters()
		if len(params) != 1 {
			return nil, &xerr.InvalidBridgeState{Reason: "List<T> does not have exactly one resolved parameter"}
		}
		itemCLIType, err := params[0].Resolve(cliType.Ctx)
		if err != nil {
			return nil, err
		}
		return NewArrayTypeDescriptor(cliType, itemCLIType, nil), nil
	case namespace == "System":
		if d, ok := c.builtinTypeDesc[name]; ok {
			return d, nil
		}
	}

	return NewCompositeTypeDescriptor(cliType, nil), nil
}

func (c *deserializationContext) XSTypeFromCLIType(cliType *cli.TypeInstance) (string, error) {
	namespace := cliType.DerivedFrom.Namespace.String()
	name := cliType.DerivedFrom.Name

	if namespace == "System" {
		switch name {
		case "SByte", "Int16", "Int32", "Int64", "Byte", "Uint16", "Uint32", "Uint64":
			return "long", nil
		case "String":
			return "string", nil
		case "DateTime":
			return "dateTime", nil
		case "Boolean":
			return "bool", nil
		case "Double", "Single":
			return "double", nil
		}
	}

	return "", &xerr.NotImplemented{What: fmt.Sprintf("no XSD type name for %s", cliType)}
}

func (c *deserializationContext) XSDeserialize(typeName, value string) (*cli.BasicValue, error) {
	return c.xsDeserializer.Deserialize(typeName, value)
}

// ValidateDescriptor walks a hand-authored descriptor tree before decoding
// starts, accumulating every structural problem it finds (rather than
// stopping at the first) via multierr, the same library the CLI's batch
// inspect mode uses for accumulating per-file errors.
func ValidateDescriptor(d TypeDescriptor) error {
	var err error
	validateDescriptor(d, &err)
	return err
}

func validateDescriptor(d TypeDescriptor, errs *error) {
	if d == nil {
		*errs = multierr.Append(*errs, fmt.Errorf("descriptor is nil"))
		return
	}
	switch td := d.(type) {
	case *CompositeTypeDescriptor:
		seen := make(map[string]bool, len(td.Members))
		for _, m := range td.Members {
			if m.Name == "" {
				*errs = multierr.Append(*errs, fmt.Errorf("composite member has an empty tag name"))
				continue
			}
			if seen[m.Name] {
				*errs = multierr.Append(*errs, fmt.Errorf("composite has duplicate member tag name %q", m.Name))
			}
			seen[m.Name] = true
			validateDescriptor(m.TypeDescriptor, errs)
		}
	case *ArrayTypeDescriptor:
		if td.ItemCLIType == nil && td.CLIType() == nil {
			*errs = multierr.Append(*errs, fmt.Errorf("array descriptor has neither an item CLI type nor a container CLI type to infer one from"))
		}
		if td.ItemDescriptor != nil {
			validateDescriptor(td.ItemDescriptor, errs)
		}
	case *DictionaryTypeDescriptor:
		if td.KeyCLIType == nil && td.CLIType() == nil {
			*errs = multierr.Append(*errs, fmt.Errorf("dictionary descriptor has neither key/value CLI types nor a container CLI type to infer them from"))
		}
	case *BasicTypeDescriptor:
		if td.CLIType() == nil {
			*errs = multierr.Append(*errs, fmt.Errorf("basic descriptor has no CLI type"))
		}
	case *SingletonTypeDescriptor:
		if td.CLIType() == nil {
			*errs = multierr.Append(*errs, fmt.Errorf("singleton descriptor has no CLI type"))
		}
	}
}

// Deserializer decodes one Data Contract XML document against a supplied
// top-level MemberDescriptor, mirroring the Python Deserializer callable:
// the document's root element is decoded as if it were that member's
// content.
type Deserializer struct {
	builtins *cli.Builtins
	maxDepth int
}

func NewDeserializer(builtins *cli.Builtins, opts ...Option) *Deserializer {
	var cfg deserializerConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Deserializer{builtins: builtins, maxDepth: cfg.maxDepth}
}

// Decode reads a full XML document from r and decodes it against descriptor,
// returning whatever value the root element produces.
func (dz *Deserializer) Decode(r io.Reader, descriptor MemberDescriptor) (cli.Value, error) {
	ctx := newContext(dz.builtins)
	dec := xml.NewDecoder(r)
	drv := &driver{maxDepth: dz.maxDepth}
	sentinel := newSentinelHandler(drv, ctx)
	drv.setCurrent(newMemberHandler(drv, sentinel, ctx, descriptor))
	if err := drv.run(dec); err != nil {
		return nil, err
	}
	return sentinel.result, nil
}

// DecodeString is a convenience wrapper over Decode for in-memory XML text.
func (dz *Deserializer) DecodeString(s string, descriptor MemberDescriptor) (cli.Value, error) {
	return dz.Decode(strings.NewReader(s), descriptor)
}

// DecodeBytes is a convenience wrapper over Decode for an in-memory XML
// document.
func (dz *Deserializer) DecodeBytes(b []byte, descriptor MemberDescriptor) (cli.Value, error) {
	return dz.Decode(bytes.NewReader(b), descriptor)
}
