package nrbf

import (
	"io"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// readClassInfo reads the common (object_id, name, member_names) header
// shared by the *ClassWithMembers* record family (2.3.2.1).
func readClassInfo(r io.Reader) (objectID int32, name string, memberNames []string, err error) {
	objectID, err = readInt32LE(r)
	if err != nil {
		return 0, "", nil, err
	}
	name, err = readLengthPrefixedString(r)
	if err != nil {
		return 0, "", nil, err
	}
	count, err := readInt32LE(r)
	if err != nil {
		return 0, "", nil, err
	}
	memberNames = make([]string, count)
	for i := range memberNames {
		memberNames[i], err = readLengthPrefixedString(r)
		if err != nil {
			return 0, "", nil, err
		}
	}
	return objectID, name, memberNames, nil
}

// readClassTypeInfo reads a ClassTypeInfo: a type name plus the library id
// it belongs to (library resolvability is checked later, by the bridge).
func readClassTypeInfo(r io.Reader) (*ClassTypeInfo, error) {
	name, err := readLengthPrefixedString(r)
	if err != nil {
		return nil, err
	}
	libraryID, err := readInt32LE(r)
	if err != nil {
		return nil, err
	}
	return &ClassTypeInfo{Name: name, LibraryID: libraryID}, nil
}

func binaryTypeFromByte(b byte) (BinaryType, error) {
	if b > byte(BinaryTypePrimitiveArray) {
		return 0, &xerr.InvalidStream{Reason: "unknown binary type"}
	}
	return BinaryType(b), nil
}

func primitiveTypeFromByte(b byte) (PrimitiveType, error) {
	switch PrimitiveType(b) {
	case PrimitiveTypeBoolean, PrimitiveTypeByte, PrimitiveTypeChar, PrimitiveTypeDecimal,
		PrimitiveTypeDouble, PrimitiveTypeInt16, PrimitiveTypeInt32, PrimitiveTypeInt64,
		PrimitiveTypeSByte, PrimitiveTypeSingle, PrimitiveTypeTimeSpan, PrimitiveTypeDateTime,
		PrimitiveTypeUInt16, PrimitiveTypeUInt32, PrimitiveTypeUInt64, PrimitiveTypeNull, PrimitiveTypeString:
		return PrimitiveType(b), nil
	default:
		return 0, &xerr.InvalidStream{Reason: "unknown primitive type"}
	}
}

// readAdditionalInfo reads whatever extra payload a BinaryType tag requires.
func readAdditionalInfo(binaryType BinaryType, r io.Reader) (TypeInfo, error) {
	ti := TypeInfo{BinaryType: binaryType}
	switch binaryType {
	case BinaryTypePrimitive, BinaryTypePrimitiveArray:
		b, err := readExact(r, 1)
		if err != nil {
			return ti, err
		}
		pt, err := primitiveTypeFromByte(b[0])
		if err != nil {
			return ti, err
		}
		ti.PrimitiveInfo = pt
	case BinaryTypeSystemClass:
		name, err := readLengthPrefixedString(r)
		if err != nil {
			return ti, err
		}
		ti.SystemClassName = name
	case BinaryTypeClass:
		cti, err := readClassTypeInfo(r)
		if err != nil {
			return ti, err
		}
		ti.ClassInfo = cti
	case BinaryTypeString, BinaryTypeObject, BinaryTypeObjectArray, BinaryTypeStringArray:
		// no additional bytes
	}
	return ti, nil
}

// readMemberTypeInfo reads |memberNames| BinaryType tags followed by each
// tag's additional info (2.3.1.2).
func readMemberTypeInfo(memberNames []string, r io.Reader) ([]MemberInfo, error) {
	tags, err := readExact(r, len(memberNames))
	if err != nil {
		return nil, err
	}
	members := make([]MemberInfo, len(memberNames))
	for i, name := range memberNames {
		bt, err := binaryTypeFromByte(tags[i])
		if err != nil {
			return nil, err
		}
		ti, err := readAdditionalInfo(bt, r)
		if err != nil {
			return nil, err
		}
		members[i] = MemberInfo{Name: name, TypeInfo: ti}
	}
	return members, nil
}

// readArrayInfo reads the (object_id, length) pair used by the
// ArraySingle* record family; shape is always 1-D with a zero lower bound.
func readArrayInfo(r io.Reader) (*ArrayInfo, error) {
	objectID, err := readInt32LE(r)
	if err != nil {
		return nil, err
	}
	length, err := readInt32LE(r)
	if err != nil {
		return nil, err
	}
	return &ArrayInfo{
		ObjectID:    objectID,
		Shape:       []int32{length},
		LowerBounds: []int32{0},
	}, nil
}
