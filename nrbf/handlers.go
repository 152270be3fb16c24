package nrbf

import (
	"io"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// serializedStreamHandler is record code 0: the stream header.
type serializedStreamHandler struct{}

func (serializedStreamHandler) Code() int { return 0 }

func (serializedStreamHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	rootID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	headerID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	major, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	minor, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	if major != 1 || minor != 0 {
		return nil, false, &xerr.VersionMismatch{Major: major, Minor: minor}
	}
	ctx.SetHeader(rootID, headerID, major, minor)
	return nil, true, nil
}

// classWithIdHandler is record code 1: an inline clone of a previously
// registered class instance, with its own freshly-read member values.
type classWithIdHandler struct {
	elementValueReader *ElementValueReader
}

func (classWithIdHandler) Code() int { return 1 }

func (h *classWithIdHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	metadataID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	that, ok := ctx.FetchObject(metadataID)
	if !ok {
		return nil, false, &xerr.InvalidStream{Reason: "ClassWithId referenced an unregistered object"}
	}
	thatInstance, ok := that.(*Instance)
	if !ok {
		return nil, false, &xerr.InvalidStream{Reason: "ClassWithId referenced a non-Instance object"}
	}
	elements := make([]typeInfoCardinality, len(thatInstance.ClassInfo.Members))
	for i, m := range thatInstance.ClassInfo.Members {
		elements[i] = typeInfoCardinality{TypeInfo: m.TypeInfo, N: 1}
	}
	values, err := h.elementValueReader.Read(ctx, elements, r)
	if err != nil {
		return nil, false, err
	}
	value := &Instance{ClassInfo: thatInstance.ClassInfo, Values: values}
	ctx.AddObject(objectID, value)
	return []any{value}, true, nil
}

// notImplementedHandler stands in for record kinds the spec documents but
// does not implement: codes 2, 3, 8, 16, 17, 21, 22.
type notImplementedHandler struct {
	code int
	what string
}

func (h notImplementedHandler) Code() int { return h.code }

func (h notImplementedHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	return nil, false, &xerr.NotImplemented{What: h.what}
}

// systemClassWithMembersAndTypesHandler is record code 4.
type systemClassWithMembersAndTypesHandler struct {
	elementValueReader *ElementValueReader
}

func (systemClassWithMembersAndTypesHandler) Code() int { return 4 }

func (h *systemClassWithMembersAndTypesHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, name, memberNames, err := readClassInfo(r)
	if err != nil {
		return nil, false, err
	}
	members, err := readMemberTypeInfo(memberNames, r)
	if err != nil {
		return nil, false, err
	}
	classInfo := &ClassInfo{ObjectID: objectID, Name: name, Members: members}
	value := &Instance{ClassInfo: classInfo}
	ctx.AddObject(objectID, value)

	elements := make([]typeInfoCardinality, len(members))
	for i, m := range members {
		elements[i] = typeInfoCardinality{TypeInfo: m.TypeInfo, N: 1}
	}
	values, err := h.elementValueReader.Read(ctx, elements, r)
	if err != nil {
		return nil, false, err
	}
	value.Values = values
	return []any{value}, true, nil
}

// classWithMembersAndTypesHandler is record code 5: like code 4 plus a
// trailing library id that must already be known.
type classWithMembersAndTypesHandler struct {
	elementValueReader *ElementValueReader
}

func (classWithMembersAndTypesHandler) Code() int { return 5 }

func (h *classWithMembersAndTypesHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, name, memberNames, err := readClassInfo(r)
	if err != nil {
		return nil, false, err
	}
	members, err := readMemberTypeInfo(memberNames, r)
	if err != nil {
		return nil, false, err
	}
	libraryID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	if !ctx.LibraryIDResolvable(libraryID) {
		return nil, false, &xerr.UnresolvableLibraryId{LibraryID: libraryID}
	}
	classInfo := &ClassInfo{ObjectID: objectID, Name: name, Members: members, LibraryID: libraryID, HasLibraryID: true}
	value := &Instance{ClassInfo: classInfo}
	ctx.AddObject(objectID, value)

	elements := make([]typeInfoCardinality, len(members))
	for i, m := range members {
		elements[i] = typeInfoCardinality{TypeInfo: m.TypeInfo, N: 1}
	}
	values, err := h.elementValueReader.Read(ctx, elements, r)
	if err != nil {
		return nil, false, err
	}
	value.Values = values
	return []any{value}, true, nil
}

// binaryObjectStringHandler is record code 6.
type binaryObjectStringHandler struct{}

func (binaryObjectStringHandler) Code() int { return 6 }

func (binaryObjectStringHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	value, err := readLengthPrefixedString(r)
	if err != nil {
		return nil, false, err
	}
	ctx.AddObject(objectID, value)
	return []any{value}, true, nil
}

// binaryArrayHandler is record code 7: single/jagged/rectangular arrays,
// with or without an explicit lower bound per rank.
type binaryArrayHandler struct {
	elementValueReader *ElementValueReader
}

func (binaryArrayHandler) Code() int { return 7 }

func (h *binaryArrayHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	kindByte, err := readExact(r, 1)
	if err != nil {
		return nil, false, err
	}
	if kindByte[0] > byte(BinaryArrayTypeRectangularOffset) {
		return nil, false, &xerr.InvalidStream{Reason: "unknown binary array type"}
	}
	kind := BinaryArrayType(kindByte[0])
	rank, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	if rank < 0 {
		return nil, false, &xerr.InvalidStream{Reason: "array rank must be non-negative"}
	}

	var lengths, lowerBounds []int32
	hasOffset := kind == BinaryArrayTypeSingleOffset || kind == BinaryArrayTypeJaggedOffset || kind == BinaryArrayTypeRectangularOffset
	if hasOffset {
		lengths = make([]int32, rank)
		lowerBounds = make([]int32, rank)
		for i := int32(0); i < rank; i++ {
			if lengths[i], err = readInt32LE(r); err != nil {
				return nil, false, err
			}
		}
		for i := int32(0); i < rank; i++ {
			if lowerBounds[i], err = readInt32LE(r); err != nil {
				return nil, false, err
			}
		}
	} else {
		lengths = make([]int32, rank)
		for i := int32(0); i < rank; i++ {
			if lengths[i], err = readInt32LE(r); err != nil {
				return nil, false, err
			}
		}
		lowerBounds = make([]int32, rank)
	}

	btByte, err := readExact(r, 1)
	if err != nil {
		return nil, false, err
	}
	binaryType, err := binaryTypeFromByte(btByte[0])
	if err != nil {
		return nil, false, err
	}
	elemTypeInfo, err := readAdditionalInfo(binaryType, r)
	if err != nil {
		return nil, false, err
	}

	arrayInfo := &ArrayInfo{ObjectID: objectID, Shape: lengths, LowerBounds: lowerBounds, Type: kind, TypeInfo: &elemTypeInfo}
	value := &Array{ArrayInfo: arrayInfo}
	ctx.AddObject(objectID, value)

	total := 1
	for _, l := range lengths {
		total *= int(l)
	}
	values, err := h.elementValueReader.Read(ctx, []typeInfoCardinality{{TypeInfo: elemTypeInfo, N: total}}, r)
	if err != nil {
		return nil, false, err
	}
	value.Values = values
	return []any{value}, true, nil
}

// memberReferenceHandler is record code 9: a back-reference.
type memberReferenceHandler struct{}

func (memberReferenceHandler) Code() int { return 9 }

func (memberReferenceHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	objectID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	return []any{ObjectReference{ObjectID: objectID}}, true, nil
}

// objectNullHandler is record code 10: a single null value slot.
type objectNullHandler struct{}

func (objectNullHandler) Code() int { return 10 }

func (objectNullHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	return []any{nil}, true, nil
}

// messageEndHandler is record code 11: stop the top-level loop.
type messageEndHandler struct{}

func (messageEndHandler) Code() int { return 11 }

func (messageEndHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	return nil, false, nil
}

// binaryLibraryHandler is record code 12: a library id/name table entry.
type binaryLibraryHandler struct{}

func (binaryLibraryHandler) Code() int { return 12 }

func (binaryLibraryHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	libraryID, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	name, err := readLengthPrefixedString(r)
	if err != nil {
		return nil, false, err
	}
	ctx.AddLibraryIDNameMapping(libraryID, name)
	return nil, true, nil
}

// objectNullMultiple256Handler is record code 13: up to 255 consecutive
// nulls, count stored in a single byte.
type objectNullMultiple256Handler struct{}

func (objectNullMultiple256Handler) Code() int { return 13 }

func (objectNullMultiple256Handler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	b, err := readExact(r, 1)
	if err != nil {
		return nil, false, err
	}
	values := make([]any, b[0])
	return values, true, nil
}

// objectNullMultipleHandler is record code 14: like 13 but with a 4-byte count.
type objectNullMultipleHandler struct{}

func (objectNullMultipleHandler) Code() int { return 14 }

func (objectNullMultipleHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	count, err := readInt32LE(r)
	if err != nil {
		return nil, false, err
	}
	values := make([]any, count)
	return values, true, nil
}

// arraySinglePrimitiveHandler is record code 15: a 1-D array of a single
// primitive type.
type arraySinglePrimitiveHandler struct {
	elementValueReader *ElementValueReader
}

func (arraySinglePrimitiveHandler) Code() int { return 15 }

func (h *arraySinglePrimitiveHandler) Deserialize(ctx *Context, r io.Reader) ([]any, bool, error) {
	arrayInfo, err := readArrayInfo(r)
	if err != nil {
		return nil, false, err
	}
	b, err := readExact(r, 1)
	if err != nil {
		return nil, false, err
	}
	primitiveType, err := primitiveTypeFromByte(b[0])
	if err != nil {
		return nil, false, err
	}
	typeInfo := TypeInfo{BinaryType: BinaryTypePrimitive, PrimitiveInfo: primitiveType}
	arrayInfo.TypeInfo = &typeInfo
	arrayInfo.Type = BinaryArrayTypeSingle
	value := &Array{ArrayInfo: arrayInfo}
	ctx.AddObject(arrayInfo.ObjectID, value)

	values, err := h.elementValueReader.Read(ctx, []typeInfoCardinality{{TypeInfo: typeInfo, N: int(arrayInfo.Shape[0])}}, r)
	if err != nil {
		return nil, false, err
	}
	value.Values = values
	return []any{value}, true, nil
}

// newHandlerSet wires the complete
// dependency graph: the element value reader needs the member record
// handler map to resolve nested String/Object/Class-typed slots, and some
// of those same handler instances recurse back through the element value
// reader. Constructing the map first and handing ElementValueReader a
// reference to it (maps are reference types) breaks the cycle without
// indirection.
func newHandlerSet(localizer TimezoneLocalizer) (topLevel map[int]RecordHandler, evr *ElementValueReader) {
	memberRecordHandlers := make(map[int]RecordHandler)
	evr = &ElementValueReader{
		Untyped:              &UntypedPrimitiveValueReader{Localizer: localizer},
		MemberRecordHandlers: memberRecordHandlers,
	}

	classWithID := &classWithIdHandler{elementValueReader: evr}
	systemClassWithMembersAndTypes := &systemClassWithMembersAndTypesHandler{elementValueReader: evr}
	classWithMembersAndTypes := &classWithMembersAndTypesHandler{elementValueReader: evr}
	binaryObjectString := binaryObjectStringHandler{}
	memberReference := memberReferenceHandler{}
	objectNull := objectNullHandler{}
	objectNullMultiple256 := objectNullMultiple256Handler{}
	objectNullMultiple := objectNullMultipleHandler{}
	systemClassWithMembers := notImplementedHandler{code: 2, what: "SystemClassWithMembers record"}
	classWithMembers := notImplementedHandler{code: 3, what: "ClassWithMembers record"}
	memberPrimitiveTyped := notImplementedHandler{code: 8, what: "MemberPrimitiveTyped record"}

	memberRecordHandlers[1] = classWithID
	memberRecordHandlers[2] = systemClassWithMembers
	memberRecordHandlers[3] = classWithMembers
	memberRecordHandlers[4] = systemClassWithMembersAndTypes
	memberRecordHandlers[5] = classWithMembersAndTypes
	memberRecordHandlers[6] = binaryObjectString
	memberRecordHandlers[8] = memberPrimitiveTyped
	memberRecordHandlers[9] = memberReference
	memberRecordHandlers[10] = objectNull
	memberRecordHandlers[13] = objectNullMultiple256
	memberRecordHandlers[14] = objectNullMultiple

	binaryArray := &binaryArrayHandler{elementValueReader: evr}
	arraySinglePrimitive := &arraySinglePrimitiveHandler{elementValueReader: evr}

	topLevel = map[int]RecordHandler{
		0:  serializedStreamHandler{},
		1:  classWithID,
		2:  systemClassWithMembers,
		3:  classWithMembers,
		4:  systemClassWithMembersAndTypes,
		5:  classWithMembersAndTypes,
		6:  binaryObjectString,
		7:  binaryArray,
		11: messageEndHandler{},
		12: binaryLibraryHandler{},
		15: arraySinglePrimitive,
		16: notImplementedHandler{code: 16, what: "ArraySingleObject record"},
		17: notImplementedHandler{code: 17, what: "ArraySingleString record"},
		21: notImplementedHandler{code: 21, what: "MethodCall record"},
		22: notImplementedHandler{code: 22, what: "MethodReturn record"},
	}
	return topLevel, evr
}
