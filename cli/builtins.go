package cli

import (
	"fmt"
	"math/big"
	"time"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// Namespace tree shared by every intrinsic type.
var (
	SystemNamespace                  = &Namespace{Name: "System", Parent: RootNamespace}
	SystemCollectionsNamespace       = &Namespace{Name: "Collections", Parent: SystemNamespace}
	SystemCollectionsGenericNamespace = &Namespace{Name: "Generic", Parent: SystemCollectionsNamespace}
)

// Intrinsic Type declarations. builtin_name strings (see Builtins below) are
// the names the Data Contract XSD layer and diagnostics use to refer to
// these without spelling out the fully qualified CLI type name.
var (
	BooleanType = NewType("Boolean", SystemNamespace, nil, WithIntrinsic())
	CharType    = NewType("Char", SystemNamespace, nil, WithIntrinsic())
	StringType  = NewType("String", SystemNamespace, nil, WithIntrinsic())
	SingleType  = NewType("Single", SystemNamespace, nil, WithIntrinsic())
	DoubleType  = NewType("Double", SystemNamespace, nil, WithIntrinsic())
	SByteType   = NewType("SByte", SystemNamespace, nil, WithIntrinsic())
	Int16Type   = NewType("Int16", SystemNamespace, nil, WithIntrinsic())
	Int32Type   = NewType("Int32", SystemNamespace, nil, WithIntrinsic())
	Int64Type   = NewType("Int64", SystemNamespace, nil, WithIntrinsic())
	UInt64Type  = NewType("UInt64", SystemNamespace, nil, WithIntrinsic())
	IntPtrType  = NewType("IntPtr", SystemNamespace, nil, WithIntrinsic())
	UIntPtrType = NewType("UIntPtr", SystemNamespace, nil, WithIntrinsic())
	ByteType    = NewType("Byte", SystemNamespace, nil, WithIntrinsic())
	UInt16Type  = NewType("UInt16", SystemNamespace, nil, WithIntrinsic())
	UInt32Type  = NewType("UInt32", SystemNamespace, nil, WithIntrinsic())
	ObjectType  = NewType("Object", SystemNamespace, nil, WithIntrinsic())

	ArrayListType = NewType("ArrayList", SystemCollectionsNamespace, nil, WithIntrinsic())
	DictionaryType = NewType("Dictionary", SystemCollectionsNamespace, nil, WithIntrinsic())

	genericListParam = &TypeParam{Name: "T"}
	ListType         = NewType("List", SystemCollectionsGenericNamespace, []*TypeParam{genericListParam}, WithIntrinsic())

	genericDictKeyParam   = &TypeParam{Name: "TKey"}
	genericDictValueParam = &TypeParam{Name: "TValue"}
	GenericDictionaryType = NewType("Dictionary", SystemCollectionsGenericNamespace,
		[]*TypeParam{genericDictKeyParam, genericDictValueParam}, WithIntrinsic())

	kvpKeyParam   = &TypeParam{Name: "TKey"}
	kvpValueParam = &TypeParam{Name: "TValue"}
	KeyValuePairType = NewType("KeyValuePair", SystemCollectionsGenericNamespace,
		[]*TypeParam{kvpKeyParam, kvpValueParam},
		WithIntrinsic(),
		WithTypeMembers([]TypeMember{
			{Name: "Key", Type: &TypeBinding{Ref: kvpKeyParam}},
			{Name: "Value", Type: &TypeBinding{Ref: kvpValueParam}},
		}),
		WithMemberHandler(func(_ *TypeInstance, memberValues []Value) (any, error) {
			pair := make([]Value, len(memberValues))
			copy(pair, memberValues)
			return pair, nil
		}),
	)

	DateTimeType = NewType("DateTime", SystemNamespace, nil, WithIntrinsic())
	TimeSpanType = NewType("TimeSpan", SystemNamespace, nil, WithIntrinsic())
	DecimalType  = NewType("Decimal", SystemNamespace, nil, WithIntrinsic())
)

// Decimal is an arbitrary-precision decimal value, used wherever the XSD
// 'decimal' lexical form needs to round-trip without a silent switch to
// binary floating point. Backed by math/big.Float: no library in the
// retrieved dependency corpus offers arbitrary-precision decimal parsing.
type Decimal struct {
	*big.Float
}

func NewDecimalFromString(s string) (Decimal, error) {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal literal %q: %w", s, err)
	}
	return Decimal{f}, nil
}

func (d Decimal) String() string {
	if d.Float == nil {
		return "0"
	}
	return d.Float.Text('f', -1)
}

// Builtins is a per-context registry of the intrinsic TypeInstances, mirroring
// the way every other part of the decoder pipeline receives its dependencies:
// constructed once per decode and threaded through explicitly rather than
// reached for as package-level state.
type Builtins struct {
	Ctx *TypeResolutionContext

	Boolean  *TypeInstance
	Char     *TypeInstance
	String   *TypeInstance
	Single   *TypeInstance
	Double   *TypeInstance
	SByte    *TypeInstance
	Int16    *TypeInstance
	Int32    *TypeInstance
	Int64    *TypeInstance
	IntPtr   *TypeInstance
	UIntPtr  *TypeInstance
	Byte     *TypeInstance
	UInt16   *TypeInstance
	UInt32   *TypeInstance
	UInt64   *TypeInstance
	Object   *TypeInstance
	ArrayList *TypeInstance
	Dictionary *TypeInstance
	DateTime *TypeInstance
	Decimal  *TypeInstance
	TimeSpan *TypeInstance
	ByteArray *TypeInstance
}

// NewBuiltins resolves every intrinsic Type against ctx, attaching the xsd
// builtin_name used by the Data Contract layer's lexical (de)serializers.
func NewBuiltins(ctx *TypeResolutionContext) (*Builtins, error) {
	b := &Builtins{Ctx: ctx}
	b.Boolean = NewTypeInstance(ctx, BooleanType, "bool", nil)
	b.Char = NewTypeInstance(ctx, CharType, "char", nil)
	b.String = NewTypeInstance(ctx, StringType, "string", nil)
	b.Single = NewTypeInstance(ctx, SingleType, "float", nil)
	b.Double = NewTypeInstance(ctx, DoubleType, "double", nil)
	b.SByte = NewTypeInstance(ctx, SByteType, "int8", nil)
	b.Int16 = NewTypeInstance(ctx, Int16Type, "int16", nil)
	b.Int32 = NewTypeInstance(ctx, Int32Type, "int32", nil)
	b.Int64 = NewTypeInstance(ctx, Int64Type, "int64", nil)
	b.IntPtr = NewTypeInstance(ctx, IntPtrType, "IntPtr", nil)
	b.UIntPtr = NewTypeInstance(ctx, UIntPtrType, "UIntPtr", nil)
	b.Byte = NewTypeInstance(ctx, ByteType, "byte", nil)
	b.UInt16 = NewTypeInstance(ctx, UInt16Type, "uint16", nil)
	b.UInt32 = NewTypeInstance(ctx, UInt32Type, "uint32", nil)
	b.UInt64 = NewTypeInstance(ctx, UInt64Type, "uint64", nil)
	b.Object = NewTypeInstance(ctx, ObjectType, "object", nil)
	b.ArrayList = NewTypeInstance(ctx, ArrayListType, "", nil)
	b.Dictionary = NewTypeInstance(ctx, DictionaryType, "", nil)
	b.DateTime = NewTypeInstance(ctx, DateTimeType, "", nil)
	b.Decimal = NewTypeInstance(ctx, DecimalType, "", nil)
	b.TimeSpan = NewTypeInstance(ctx, TimeSpanType, "", nil)

	byteArray, err := ArrayOf(b.Byte)
	if err != nil {
		return nil, err
	}
	b.ByteArray = byteArray
	return b, nil
}

// FromGoValue coerces a plain Go value into a CLIValue the way the original
// implementation's from_python_value does: by a fixed type switch over the
// handful of Go types the decoders ever hand it.
func (b *Builtins) FromGoValue(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return b.Object.InstantiateValue(nil)
	case int:
		return b.Int32.InstantiateValue(x)
	case int32:
		return b.Int32.InstantiateValue(x)
	case int64:
		return b.Int64.InstantiateValue(x)
	case float32:
		return b.Single.InstantiateValue(x)
	case float64:
		return b.Double.InstantiateValue(x)
	case string:
		return b.String.InstantiateValue(x)
	case bool:
		return b.Boolean.InstantiateValue(x)
	case Decimal:
		return b.Decimal.InstantiateValue(x)
	case time.Time:
		return b.DateTime.InstantiateValue(x)
	case time.Duration:
		return b.TimeSpan.InstantiateValue(x)
	case []byte:
		return b.ByteArray.InstantiateValue(x)
	default:
		return nil, &xerr.UnsupportedValue{Kind: fmt.Sprintf("%T", v)}
	}
}
