// Package nrbf decodes the .NET Remoting Binary Format: a record-code
// dispatched binary serialization with back-references, a library name
// table, and a small class-name grammar for generic instantiations. The
// output is an intermediate graph of Instance/Array/ObjectReference nodes
// keyed by object id; the bridge package lifts that graph onto the CLI Type
// and Value Model.
package nrbf

// BinaryType is the wire tag describing how a member or array element's
// type is spelled out on the wire (2.1.1.1).
type BinaryType int

const (
	BinaryTypePrimitive BinaryType = iota
	BinaryTypeString
	BinaryTypeObject
	BinaryTypeSystemClass
	BinaryTypeClass
	BinaryTypeObjectArray
	BinaryTypeStringArray
	BinaryTypePrimitiveArray
)

// PrimitiveType enumerates the scalar wire types (2.1.1.2); values match the
// wire encoding exactly.
type PrimitiveType int

const (
	PrimitiveTypeBoolean  PrimitiveType = 1
	PrimitiveTypeByte     PrimitiveType = 2
	PrimitiveTypeChar     PrimitiveType = 3
	PrimitiveTypeDecimal  PrimitiveType = 5
	PrimitiveTypeDouble   PrimitiveType = 6
	PrimitiveTypeInt16    PrimitiveType = 7
	PrimitiveTypeInt32    PrimitiveType = 8
	PrimitiveTypeInt64    PrimitiveType = 9
	PrimitiveTypeSByte    PrimitiveType = 10
	PrimitiveTypeSingle   PrimitiveType = 11
	PrimitiveTypeTimeSpan PrimitiveType = 12
	PrimitiveTypeDateTime PrimitiveType = 13
	PrimitiveTypeUInt16   PrimitiveType = 14
	PrimitiveTypeUInt32   PrimitiveType = 15
	PrimitiveTypeUInt64   PrimitiveType = 16
	PrimitiveTypeNull     PrimitiveType = 17
	PrimitiveTypeString   PrimitiveType = 18
)

// BinaryArrayType is the array-shape tag read by BinaryArrayHandler (2.4.2.1).
type BinaryArrayType int

const (
	BinaryArrayTypeSingle BinaryArrayType = iota
	BinaryArrayTypeJagged
	BinaryArrayTypeRectangular
	BinaryArrayTypeSingleOffset
	BinaryArrayTypeJaggedOffset
	BinaryArrayTypeRectangularOffset
)

// ClassTypeInfo is a (type name, library id) pair used when a member or
// array element is declared as a known class.
type ClassTypeInfo struct {
	Name      string
	LibraryID int32
}

// TypeInfo is a BinaryType tag plus whatever additional payload that tag
// requires: a PrimitiveType, a *ClassTypeInfo, a system-class name string, or
// nothing at all.
type TypeInfo struct {
	BinaryType     BinaryType
	PrimitiveInfo  PrimitiveType
	ClassInfo      *ClassTypeInfo
	SystemClassName string
}

// MemberInfo is one entry of a class's member layout.
type MemberInfo struct {
	Name     string
	TypeInfo TypeInfo
}

// ClassInfo is a class's identity, name and member layout.
type ClassInfo struct {
	ObjectID  int32
	Name      string
	Members   []MemberInfo
	LibraryID int32 // 0 if absent; HasLibraryID distinguishes "no library" from library id 0
	HasLibraryID bool
}

// ArrayInfo is an array's identity and shape.
type ArrayInfo struct {
	ObjectID    int32
	Shape       []int32
	LowerBounds []int32
	Type        BinaryArrayType
	TypeInfo    *TypeInfo
}

// ObjectReference is a back-reference to a previously-seen object id.
type ObjectReference struct {
	ObjectID int32
}

// Instance is a class instance: its identity/layout plus, once its member
// values are known, their decoded payload (nil Values means "not yet
// populated", as happens transiently for ClassWithId's referent).
type Instance struct {
	ClassInfo *ClassInfo
	Values    []any
}

// Array is an array node: its shape plus, once populated, its element
// payload.
type Array struct {
	ArrayInfo *ArrayInfo
	Values    []any
}

// LibraryInfo is the parsed form of a .NET assembly-qualified library name:
// Name, Version, Culture and an optional PublicKeyToken.
type LibraryInfo struct {
	Name            string
	Version         string
	Culture         string
	PublicKeyToken  string
	HasPublicKeyToken bool
}
