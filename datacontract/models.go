// Package datacontract decodes WCF Data Contract XML payloads into the same
// CLI Value Model the NRBF bridge produces, driven by a hand-written
// namespace-aware token dispatcher over encoding/xml (the nearest Go
// equivalent of a SAX ContentHandler chain).
package datacontract

import "github.com/moriyoshi/dotnetserde/cli"

// TypeDescriptor is the sum of the five shapes a member's expected XML
// encoding can take: a scalar (Basic), a user class (Composite), a
// collection (Array), a map (Dictionary), or a one-member wrapper
// (Singleton, used for IntPtr/UIntPtr which WCF serializes as a bare value
// with no XSD type annotation).
type TypeDescriptor interface {
	CLIType() *cli.TypeInstance
	withCLIType(*cli.TypeInstance) TypeDescriptor
}

// MemberDescriptor is a single expected child element: its tag name and
// namespace, the shape it must decode into, and (for a CLI member whose Go
// field name differs from its XML tag, e.g. a reserved word) an override
// name to look the member up by.
type MemberDescriptor struct {
	Name           string
	Namespace      string
	HasNamespace   bool
	TypeDescriptor TypeDescriptor
	MemberName     string
}

// ResolvedMemberName is MemberName if set, else Name.
func (m MemberDescriptor) ResolvedMemberName() string {
	if m.MemberName != "" {
		return m.MemberName
	}
	return m.Name
}

// WithCLIType returns a copy of m whose type descriptor carries cliType,
// used when a composite member's element type is only known once its
// owning type's member list has been consulted.
func (m MemberDescriptor) WithCLIType(cliType *cli.TypeInstance) MemberDescriptor {
	m.TypeDescriptor = m.TypeDescriptor.withCLIType(cliType)
	return m
}

// BasicTypeDescriptor is a leaf scalar value, deserialized through the XSD
// lexical (de)serializer registry keyed by its XSD type name.
type BasicTypeDescriptor struct {
	cliType *cli.TypeInstance
}

func NewBasicTypeDescriptor(cliType *cli.TypeInstance) *BasicTypeDescriptor {
	return &BasicTypeDescriptor{cliType: cliType}
}

func (d *BasicTypeDescriptor) CLIType() *cli.TypeInstance { return d.cliType }
func (d *BasicTypeDescriptor) withCLIType(t *cli.TypeInstance) TypeDescriptor {
	return &BasicTypeDescriptor{cliType: t}
}

// CompositeTypeDescriptor is a user-class element: an ordered member list
// plus a name index built once at construction time.
type CompositeTypeDescriptor struct {
	cliType        *cli.TypeInstance
	Members        []MemberDescriptor
	nameToMember   map[string]MemberDescriptor
}

func NewCompositeTypeDescriptor(cliType *cli.TypeInstance, members []MemberDescriptor) *CompositeTypeDescriptor {
	d := &CompositeTypeDescriptor{cliType: cliType, Members: members}
	d.nameToMember = make(map[string]MemberDescriptor, len(members))
	for _, m := range members {
		d.nameToMember[m.Name] = m
	}
	return d
}

func (d *CompositeTypeDescriptor) CLIType() *cli.TypeInstance { return d.cliType }
func (d *CompositeTypeDescriptor) withCLIType(t *cli.TypeInstance) TypeDescriptor {
	return NewCompositeTypeDescriptor(t, d.Members)
}

func (d *CompositeTypeDescriptor) MemberByTagName(name string) (MemberDescriptor, bool) {
	m, ok := d.nameToMember[name]
	return m, ok
}

// ArrayTypeDescriptor is a homogeneous collection element (ArrayList,
// List<T> or a bare NRBF-style array). ItemDescriptor, when present, fixes
// the shape items decode into; otherwise it is derived from ItemCLIType via
// the owning Context's TypeDescriptorFromCLIType.
type ArrayTypeDescriptor struct {
	cliType        *cli.TypeInstance
	ItemCLIType    *cli.TypeInstance
	ItemDescriptor TypeDescriptor
}

func NewArrayTypeDescriptor(cliType, itemCLIType *cli.TypeInstance, itemDescriptor TypeDescriptor) *ArrayTypeDescriptor {
	return &ArrayTypeDescriptor{cliType: cliType, ItemCLIType: itemCLIType, ItemDescriptor: itemDescriptor}
}

func (d *ArrayTypeDescriptor) CLIType() *cli.TypeInstance { return d.cliType }
func (d *ArrayTypeDescriptor) withCLIType(t *cli.TypeInstance) TypeDescriptor {
	return NewArrayTypeDescriptor(t, d.ItemCLIType, d.ItemDescriptor)
}

// DictionaryTypeDescriptor is a Dictionary<TKey, TValue> element, whose
// items decode as KeyValuePair(Key, Value) composites.
type DictionaryTypeDescriptor struct {
	cliType      *cli.TypeInstance
	KeyCLIType   *cli.TypeInstance
	ValueCLIType *cli.TypeInstance
}

func NewDictionaryTypeDescriptor(cliType, keyCLIType, valueCLIType *cli.TypeInstance) *DictionaryTypeDescriptor {
	return &DictionaryTypeDescriptor{cliType: cliType, KeyCLIType: keyCLIType, ValueCLIType: valueCLIType}
}

func (d *DictionaryTypeDescriptor) CLIType() *cli.TypeInstance { return d.cliType }
func (d *DictionaryTypeDescriptor) withCLIType(t *cli.TypeInstance) TypeDescriptor {
	return NewDictionaryTypeDescriptor(t, d.KeyCLIType, d.ValueCLIType)
}

// SingletonTypeDescriptor wraps a value whose XML encoding has no wrapper
// logic of its own (IntPtr/UIntPtr): the single anonymous child is decoded
// through whatever descriptor the Context derives for its CLI type.
type SingletonTypeDescriptor struct {
	cliType *cli.TypeInstance
}

func NewSingletonTypeDescriptor(cliType *cli.TypeInstance) *SingletonTypeDescriptor {
	return &SingletonTypeDescriptor{cliType: cliType}
}

func (d *SingletonTypeDescriptor) CLIType() *cli.TypeInstance { return d.cliType }
func (d *SingletonTypeDescriptor) withCLIType(t *cli.TypeInstance) TypeDescriptor {
	return NewSingletonTypeDescriptor(t)
}
