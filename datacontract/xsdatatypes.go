package datacontract

import (
	"encoding/base64"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// xsDataSerializer is the per-XSD-type-name lexical codec: it converts
// between the wire string form of an XML element's text content and a
// cli.BasicValue of a known type.
type xsDataSerializer interface {
	xsdTypeName() string
	serialize(v *cli.BasicValue) (string, error)
	deserialize(value string) (*cli.BasicValue, error)
}

type dateTimeSerializer struct{ ti *cli.TypeInstance }

func (s *dateTimeSerializer) xsdTypeName() string { return "dateTime" }

func (s *dateTimeSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	t, ok := v.Raw.(time.Time)
	if !ok {
		return "", fmt.Errorf("expected time.Time, got %T", v.Raw)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func (s *dateTimeSerializer) deserialize(value string) (*cli.BasicValue, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, fmt.Errorf("invalid dateTime literal %q: %w", value, err)
		}
	}
	return &cli.BasicValue{TI: s.ti, Raw: t}, nil
}

type base64BinarySerializer struct{ ti *cli.TypeInstance }

func (s *base64BinarySerializer) xsdTypeName() string { return "base64Binary" }

func (s *base64BinarySerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	b, ok := v.Raw.([]byte)
	if !ok {
		return "", fmt.Errorf("expected []byte, got %T", v.Raw)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (s *base64BinarySerializer) deserialize(value string) (*cli.BasicValue, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid base64Binary literal: %w", err)
	}
	return &cli.BasicValue{TI: s.ti, Raw: b}, nil
}

// longSerializer routes between Int32 and Int64 depending on the decoded
// literal's bit length: System.Int64/UInt32/UInt64 members can all legally
// appear where the schema says "long", so the narrowest CLI type that still
// fits the value is picked on decode, mirroring the original's
// bit_length()-based routing (v.bit_length()+1 for v>0; else (v+1).bit_length()+1
// for the two's-complement width including the sign bit).
type longSerializer struct {
	int32TI, int64TI *cli.TypeInstance
}

func (s *longSerializer) xsdTypeName() string { return "long" }

func (s *longSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.int32TI && v.TI != s.int64TI {
		return "", fmt.Errorf("expected %s or %s, got %s", s.int32TI, s.int64TI, v.TI)
	}
	switch x := v.Raw.(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", fmt.Errorf("expected an integer, got %T", v.Raw)
	}
}

func longBitLength(v int64) int {
	if v >= 0 {
		return bits.Len64(uint64(v)) + 1
	}
	return bits.Len64(uint64(^v)) + 1
}

func (s *longSerializer) deserialize(value string) (*cli.BasicValue, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid long literal %q: %w", value, err)
	}
	if longBitLength(v) <= 32 {
		return &cli.BasicValue{TI: s.int32TI, Raw: int32(v)}, nil
	}
	return &cli.BasicValue{TI: s.int64TI, Raw: v}, nil
}

type doubleSerializer struct{ ti *cli.TypeInstance }

func (s *doubleSerializer) xsdTypeName() string { return "double" }

func (s *doubleSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	f, ok := v.Raw.(float64)
	if !ok {
		return "", fmt.Errorf("expected float64, got %T", v.Raw)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func (s *doubleSerializer) deserialize(value string) (*cli.BasicValue, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid double literal %q: %w", value, err)
	}
	return &cli.BasicValue{TI: s.ti, Raw: f}, nil
}

type decimalSerializer struct{ ti *cli.TypeInstance }

func (s *decimalSerializer) xsdTypeName() string { return "decimal" }

func (s *decimalSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	d, ok := v.Raw.(cli.Decimal)
	if !ok {
		return "", fmt.Errorf("expected cli.Decimal, got %T", v.Raw)
	}
	return d.String(), nil
}

func (s *decimalSerializer) deserialize(value string) (*cli.BasicValue, error) {
	d, err := cli.NewDecimalFromString(value)
	if err != nil {
		return nil, err
	}
	return &cli.BasicValue{TI: s.ti, Raw: d}, nil
}

type booleanSerializer struct{ ti *cli.TypeInstance }

func (s *booleanSerializer) xsdTypeName() string { return "bool" }

func (s *booleanSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	b, ok := v.Raw.(bool)
	if !ok {
		return "", fmt.Errorf("expected bool, got %T", v.Raw)
	}
	if b {
		return "true", nil
	}
	return "false", nil
}

func (s *booleanSerializer) deserialize(value string) (*cli.BasicValue, error) {
	switch strings.ToLower(value) {
	case "true", "1":
		return &cli.BasicValue{TI: s.ti, Raw: true}, nil
	case "false":
		return &cli.BasicValue{TI: s.ti, Raw: false}, nil
	default:
		return nil, &xerr.InvalidBoolean{Value: value}
	}
}

type stringSerializer struct{ ti *cli.TypeInstance }

func (s *stringSerializer) xsdTypeName() string { return "string" }

func (s *stringSerializer) serialize(v *cli.BasicValue) (string, error) {
	if v.TI != s.ti {
		return "", fmt.Errorf("expected %s, got %s", s.ti, v.TI)
	}
	str, ok := v.Raw.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v.Raw)
	}
	return str, nil
}

func (s *stringSerializer) deserialize(value string) (*cli.BasicValue, error) {
	return &cli.BasicValue{TI: s.ti, Raw: value}, nil
}

// xsDataSerializerRegistry dispatches (de)serialization by XSD type name.
type xsDataSerializerRegistry struct {
	serializers map[string]xsDataSerializer
}

func (r *xsDataSerializerRegistry) Serialize(typeName string, v cli.Value) (string, error) {
	bv, ok := v.(*cli.BasicValue)
	if !ok {
		return "", fmt.Errorf("value must be a basic value, got %T", v)
	}
	s, ok := r.serializers[typeName]
	if !ok {
		return "", fmt.Errorf("no xsd serializer registered for %q", typeName)
	}
	return s.serialize(bv)
}

func (r *xsDataSerializerRegistry) Deserialize(typeName string, value string) (*cli.BasicValue, error) {
	s, ok := r.serializers[typeName]
	if !ok {
		return nil, fmt.Errorf("no xsd serializer registered for %q", typeName)
	}
	return s.deserialize(value)
}

// buildDefaultXSDataSerializerRegistry wires up one serializer per builtin
// XSD type name, each resolved against the same builtins the rest of the
// decode uses so cli_type identity checks (==) hold across the pipeline.
func buildDefaultXSDataSerializerRegistry(b *cli.Builtins) *xsDataSerializerRegistry {
	list := []xsDataSerializer{
		&dateTimeSerializer{ti: b.DateTime},
		&base64BinarySerializer{ti: b.ByteArray},
		&longSerializer{int32TI: b.Int32, int64TI: b.Int64},
		&doubleSerializer{ti: b.Double},
		&decimalSerializer{ti: b.Decimal},
		&booleanSerializer{ti: b.Boolean},
		&stringSerializer{ti: b.String},
	}
	r := &xsDataSerializerRegistry{serializers: make(map[string]xsDataSerializer, len(list))}
	for _, s := range list {
		r.serializers[s.xsdTypeName()] = s
	}
	return r
}
