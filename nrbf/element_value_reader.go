package nrbf

import (
	"io"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// RecordHandler decodes one record and reports the values it produced (for
// the top-level driver, or a caller assembling a class/array's member
// values) plus whether the stream should keep running. A non-nil error
// aborts the decode.
type RecordHandler interface {
	Code() int
	Deserialize(ctx *Context, r io.Reader) ([]any, bool, error)
}

// typeInfoCardinality pairs a member/element TypeInfo with how many values
// of that shape follow.
type typeInfoCardinality struct {
	TypeInfo TypeInfo
	N        int
}

// ElementValueReader reads the value sequence for a run of (TypeInfo,
// cardinality) pairs — the core of "read n members/array elements of this
// declared shape". String/Object/Class-typed slots recurse into a member
// record (MemberReference, ObjectNull[Multiple], or an inline class
// definition); Primitive slots call the untyped primitive reader directly.
type ElementValueReader struct {
	Untyped             *UntypedPrimitiveValueReader
	MemberRecordHandlers map[int]RecordHandler
}

func (e *ElementValueReader) readMemberReference(ctx *Context, r io.Reader) ([]any, error) {
	b, err := readExact(r, 1)
	if err != nil {
		return nil, err
	}
	handler, ok := e.MemberRecordHandlers[int(b[0])]
	if !ok {
		return nil, &xerr.UnknownRecord{Code: int(b[0])}
	}
	values, cont, err := handler.Deserialize(ctx, r)
	if err != nil {
		return nil, err
	}
	if !cont {
		return nil, &xerr.InvalidStream{Reason: "member record unexpectedly ended the stream"}
	}
	return values, nil
}

func (e *ElementValueReader) readPrimitive(ti TypeInfo, n int, r io.Reader) ([]any, error) {
	out := make([]any, 0, n)
	for len(out) < n {
		v, err := e.Untyped.Read(ti.PrimitiveInfo, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *ElementValueReader) readByReference(ctx *Context, n int, r io.Reader) ([]any, error) {
	out := make([]any, 0, n)
	for len(out) < n {
		values, err := e.readMemberReference(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

// Read decodes the value sequence for a run of (TypeInfo, cardinality)
// slots, in order, concatenating every slot's values.
func (e *ElementValueReader) Read(ctx *Context, elements []typeInfoCardinality, r io.Reader) ([]any, error) {
	var out []any
	for _, elem := range elements {
		var values []any
		var err error
		switch elem.TypeInfo.BinaryType {
		case BinaryTypePrimitive:
			values, err = e.readPrimitive(elem.TypeInfo, elem.N, r)
		case BinaryTypeString, BinaryTypeObject, BinaryTypeSystemClass, BinaryTypeClass:
			values, err = e.readByReference(ctx, elem.N, r)
		case BinaryTypeObjectArray, BinaryTypeStringArray, BinaryTypePrimitiveArray:
			err = &xerr.NotImplemented{What: "nested array member/element reading"}
		default:
			err = &xerr.InvalidStream{Reason: "unknown binary type in element reader"}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}
