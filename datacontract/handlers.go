package datacontract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/internal/diag"
	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// https://docs.microsoft.com/en-us/dotnet/framework/wcf/feature-details/using-data-contracts
const (
	xmlSchemaNamespace         = "http://www.w3.org/2001/XMLSchema"
	xmlSchemaInstanceNamespace = "http://www.w3.org/2001/XMLSchema-instance"
)

// Context is the collaborator a handler chain asks to turn a CLI type into
// its expected XML shape and to run the lexical (de)serializers; it is the
// Go shape of the original's DeserializationContext protocol.
type Context interface {
	TypeDescriptorFromCLIType(cliType *cli.TypeInstance) (TypeDescriptor, error)
	XSTypeFromCLIType(cliType *cli.TypeInstance) (string, error)
	XSDeserialize(typeName, value string) (*cli.BasicValue, error)
}

// handler is the Go analogue of a SAX ContentHandler in a manually swapped-in
// chain: exactly one handler is ever "current" on the driver, and a handler
// that recognizes a more specific shape for the element it just saw replaces
// itself with a more specific handler and, if that handler still needs to
// process the same open tag, redispatches it manually.
type handler interface {
	startElement(name xml.Name, attrs []xml.Attr) error
	endElement(name xml.Name) error
	characters(content string) error
	pushValue(v cli.Value)
	boundNamespace() (string, bool)
}

// hasDescriptorCLIType is implemented by handlers that own a TypeDescriptor,
// so a nested nilObjectHandler whose member descriptor names no CLI type can
// fall back to the owning container's.
type hasDescriptorCLIType interface {
	descriptorCLIType() *cli.TypeInstance
}

func findAttr(attrs []xml.Attr, space, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func splitQName(value string) (prefix, local string) {
	if i := strings.IndexByte(value, ':'); i >= 0 {
		return value[:i], value[i+1:]
	}
	return "", value
}

// driver plays the role of the original's mutable "parser.setContentHandler"
// slot plus the startPrefixMapping calls that feed it: the in-scope xmlns
// bindings are tracked here, lexically, rather than threaded through a copy
// carried by every handler instance, since that is all the original's
// per-handler _xmlns dict amounted to.
type driver struct {
	current  handler
	nsStack  []map[string]string
	maxDepth int
	depth    int
}

func (d *driver) setCurrent(h handler) { d.current = h }

func (d *driver) pushNamespaceFrame(attrs []xml.Attr) {
	frame := map[string]string{}
	for _, a := range attrs {
		if a.Name.Space == "xmlns" {
			frame[a.Name.Local] = a.Value
		} else if a.Name.Space == "" && a.Name.Local == "xmlns" {
			frame[""] = a.Value
		}
	}
	d.nsStack = append(d.nsStack, frame)
}

func (d *driver) popNamespaceFrame() {
	d.nsStack = d.nsStack[:len(d.nsStack)-1]
}

func (d *driver) resolvePrefix(prefix string) (string, bool) {
	for i := len(d.nsStack) - 1; i >= 0; i-- {
		if uri, ok := d.nsStack[i][prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

// run drives dec to completion, dispatching each token to whichever handler
// is current at the time.
func (d *driver) run(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.depth++
			if d.maxDepth > 0 && d.depth > d.maxDepth {
				return &xerr.MaxDepthExceeded{Limit: d.maxDepth}
			}
			d.pushNamespaceFrame(t.Attr)
			diag.V(2).Infof("datacontract: <%s> depth=%d handler=%T", t.Name.Local, d.depth, d.current)
			if err := d.current.startElement(t.Name, t.Attr); err != nil {
				return err
			}
			diag.V(2).Infof("datacontract: <%s> dispatched, handler now %T", t.Name.Local, d.current)
		case xml.EndElement:
			prev := d.current
			if err := d.current.endElement(t.Name); err != nil {
				return err
			}
			diag.V(2).Infof("datacontract: </%s> depth=%d handler %T -> %T", t.Name.Local, d.depth, prev, d.current)
			d.depth--
			d.popNamespaceFrame()
		case xml.CharData:
			if err := d.current.characters(string(t)); err != nil {
				return err
			}
		}
	}
}

// base is embedded by every concrete handler and supplies the defaults a
// handler inherits unless it overrides them: forward pushed values to the
// outer handler, ignore character data, ignore nested elements it doesn't
// understand, and on </end> hand control back to outer.
type base struct {
	d      *driver
	outerH handler
	ctx    Context
}

func newBase(d *driver, outer handler, ctx Context) base {
	return base{d: d, outerH: outer, ctx: ctx}
}

func (b *base) pushValue(v cli.Value) {
	if b.outerH != nil {
		b.outerH.pushValue(v)
	}
}

func (b *base) endElement(_ xml.Name) error {
	b.d.setCurrent(b.outerH)
	return nil
}

func (b *base) characters(_ string) error { return nil }

func (b *base) startElement(_ xml.Name, _ []xml.Attr) error { return nil }

func (b *base) boundNamespace() (string, bool) {
	if b.outerH == nil {
		return "", false
	}
	return b.outerH.boundNamespace()
}

// sentinelHandler sits at the root of the chain: it has no outer handler and
// simply records whatever value eventually bubbles up to it.
type sentinelHandler struct {
	base
	result cli.Value
}

func newSentinelHandler(d *driver, ctx Context) *sentinelHandler {
	h := &sentinelHandler{}
	h.base = newBase(d, nil, ctx)
	return h
}

func (h *sentinelHandler) endElement(_ xml.Name) error { return nil }
func (h *sentinelHandler) pushValue(v cli.Value)       { h.result = v }

// memberHandler decides, from one open tag's attributes, what shape the
// element has (nil, an explicit xsi:type override, or whatever its
// MemberDescriptor already says) and swaps itself out for the handler that
// actually owns that shape.
type memberHandler struct {
	base
	descriptor MemberDescriptor
}

func newMemberHandler(d *driver, outer handler, ctx Context, descriptor MemberDescriptor) *memberHandler {
	h := &memberHandler{descriptor: descriptor}
	h.base = newBase(d, outer, ctx)
	return h
}

func (h *memberHandler) boundNamespace() (string, bool) {
	if h.descriptor.HasNamespace {
		return h.descriptor.Namespace, true
	}
	return h.base.boundNamespace()
}

func (h *memberHandler) startElement(name xml.Name, attrs []xml.Attr) error {
	if nilAttr, ok := findAttr(attrs, xmlSchemaInstanceNamespace, "nil"); ok {
		bv, err := h.ctx.XSDeserialize("bool", nilAttr)
		if err != nil {
			return err
		}
		if isNil, _ := bv.Raw.(bool); isNil {
			var cliType *cli.TypeInstance
			if h.descriptor.TypeDescriptor != nil {
				cliType = h.descriptor.TypeDescriptor.CLIType()
			}
			h.d.setCurrent(newNilObjectHandler(h.d, h.outerH, h.ctx, cliType))
			return nil
		}
	}

	if xsit, ok := findAttr(attrs, xmlSchemaInstanceNamespace, "type"); ok {
		prefix, typeName := splitQName(xsit)
		uri, ok := h.d.resolvePrefix(prefix)
		if !ok {
			return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf("unresolvable namespace prefix %q in xsi:type", prefix)}
		}
		if uri != xmlSchemaNamespace {
			return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf(
				"XMLSchema instance attribute occurred, but its content refers to unexpected namespace %s", uri)}
		}
		h.d.setCurrent(newBasicObjectHandler(h.d, h.outerH, h.ctx, typeName))
		return nil
	}

	switch td := h.descriptor.TypeDescriptor.(type) {
	case *CompositeTypeDescriptor:
		if ns, has := h.boundNamespace(); has && name.Space != ns {
			return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf(
				"the object's namespace must be under %s, got %s", ns, name.Space)}
		}
		if h.descriptor.Name != "*" && name.Local != h.descriptor.Name {
			return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf(
				"the object's tag name must be %s, got %s", h.descriptor.Name, name.Local)}
		}
		h.d.setCurrent(newCompositeObjectHandler(h.d, h.outerH, h.ctx, td))
		return nil
	case *ArrayTypeDescriptor:
		ch, err := newArrayObjectHandler(h.d, h.outerH, h.ctx, td)
		if err != nil {
			return err
		}
		h.d.setCurrent(ch)
		return nil
	case *DictionaryTypeDescriptor:
		ch, err := newDictionaryObjectHandler(h.d, h.outerH, h.ctx, td)
		if err != nil {
			return err
		}
		h.d.setCurrent(ch)
		return nil
	case *SingletonTypeDescriptor:
		h.d.setCurrent(newSingletonObjectHandler(h.d, h.outerH, h.ctx, td))
		return nil
	case *BasicTypeDescriptor:
		xsType, err := h.ctx.XSTypeFromCLIType(td.CLIType())
		if err != nil {
			return err
		}
		h.d.setCurrent(newBasicObjectHandler(h.d, h.outerH, h.ctx, xsType))
		return nil
	default:
		return &xerr.NotImplemented{What: fmt.Sprintf("member type descriptor %T", td)}
	}
}

// compositeObjectHandler decodes a user-class element: each child tag is
// looked up by name against the descriptor's member list and recursively
// decoded through a fresh memberHandler, and the collected values are
// reassembled in declaration order once the element closes.
type compositeObjectHandler struct {
	base
	descriptor   *CompositeTypeDescriptor
	member       *MemberDescriptor
	memberValues map[int]cli.Value
}

func newCompositeObjectHandler(d *driver, outer handler, ctx Context, descriptor *CompositeTypeDescriptor) *compositeObjectHandler {
	h := &compositeObjectHandler{descriptor: descriptor, memberValues: map[int]cli.Value{}}
	h.base = newBase(d, outer, ctx)
	return h
}

func (h *compositeObjectHandler) descriptorCLIType() *cli.TypeInstance { return h.descriptor.CLIType() }

func (h *compositeObjectHandler) startElement(name xml.Name, attrs []xml.Attr) error {
	member, ok := h.descriptor.MemberByTagName(name.Local)
	if !ok {
		return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf("%s has no member named %s", h.descriptor.CLIType(), name.Local)}
	}
	if member.TypeDescriptor.CLIType() == nil {
		m, err := h.descriptor.CLIType().MemberByName(member.ResolvedMemberName())
		if err != nil {
			return err
		}
		member = member.WithCLIType(m.Type)
	}
	h.member = &member
	mh := newMemberHandler(h.d, h, h.ctx, member)
	h.d.setCurrent(mh)
	return mh.startElement(name, attrs)
}

func (h *compositeObjectHandler) endElement(name xml.Name) error {
	cliType := h.descriptor.CLIType()
	members := make([]cli.Value, len(cliType.DerivedFrom.Members()))
	for ord, v := range h.memberValues {
		if ord >= 0 && ord < len(members) {
			members[ord] = v
		}
	}
	v, err := cliType.InstantiateMembers(members)
	if err != nil {
		return err
	}
	h.base.pushValue(v)
	return h.base.endElement(name)
}

func (h *compositeObjectHandler) pushValue(v cli.Value) {
	if h.member == nil {
		return
	}
	m, err := h.descriptor.CLIType().MemberByName(h.member.ResolvedMemberName())
	if err != nil {
		return
	}
	h.memberValues[m.Ordinal()] = v
}

// arrayObjectHandler decodes a homogeneous collection element: every child
// tag decodes through the same anonymous "*" member (so its actual tag name
// is never checked against a fixed name) and is appended to an item list
// that becomes the resulting BasicValue's raw payload.
type arrayObjectHandler struct {
	base
	descriptor *ArrayTypeDescriptor
	anonMember MemberDescriptor
	items      []cli.Value
}

func newArrayObjectHandler(d *driver, outer handler, ctx Context, descriptor *ArrayTypeDescriptor) (*arrayObjectHandler, error) {
	h := &arrayObjectHandler{descriptor: descriptor}
	h.base = newBase(d, outer, ctx)

	itemCLIType := descriptor.ItemCLIType
	if itemCLIType == nil {
		containerCLIType := descriptor.CLIType()
		if containerCLIType == nil {
			return nil, &xerr.InvalidBridgeState{Reason: "array descriptor has no container CLI type"}
		}
		params := containerCLIType.DerivedFrom.Parameters()
		if len(params) != 1 {
			return nil, &xerr.InvalidBridgeState{Reason: "array container type does not have exactly one type parameter"}
		}
		resolved, err := containerCLIType.DerivedFrom.ResolvedParameters()[0].Resolve(containerCLIType.Ctx)
		if err != nil {
			return nil, err
		}
		itemCLIType = resolved
	}

	itemDescriptor := descriptor.ItemDescriptor
	if itemDescriptor != nil {
		if itemDescriptor.CLIType() == nil {
			if itemCLIType == nil {
				return nil, &xerr.InvalidBridgeState{Reason: "cannot infer item type for array descriptor"}
			}
			itemDescriptor = itemDescriptor.withCLIType(itemCLIType)
		}
	} else {
		var err error
		itemDescriptor, err = ctx.TypeDescriptorFromCLIType(itemCLIType)
		if err != nil {
			return nil, err
		}
	}

	h.anonMember = MemberDescriptor{Name: "*", TypeDescriptor: itemDescriptor}
	return h, nil
}

func (h *arrayObjectHandler) descriptorCLIType() *cli.TypeInstance { return h.descriptor.CLIType() }

func (h *arrayObjectHandler) startElement(name xml.Name, attrs []xml.Attr) error {
	mh := newMemberHandler(h.d, h, h.ctx, h.anonMember)
	h.d.setCurrent(mh)
	return mh.startElement(name, attrs)
}

func (h *arrayObjectHandler) endElement(name xml.Name) error {
	v, err := h.descriptor.CLIType().InstantiateValue(h.items)
	if err != nil {
		return err
	}
	h.base.pushValue(v)
	return h.base.endElement(name)
}

func (h *arrayObjectHandler) pushValue(v cli.Value) { h.items = append(h.items, v) }

// dictionaryObjectHandler decodes a Dictionary<TKey, TValue> element: every
// child "item" tag decodes as a synthetic KeyValuePair(Key, Value) composite
// through the shared anonymous member, and the resulting pairs become the
// dictionary's raw payload.
type dictionaryObjectHandler struct {
	base
	descriptor *DictionaryTypeDescriptor
	anonMember MemberDescriptor
	items      []cli.Value
}

func newDictionaryObjectHandler(d *driver, outer handler, ctx Context, descriptor *DictionaryTypeDescriptor) (*dictionaryObjectHandler, error) {
	h := &dictionaryObjectHandler{descriptor: descriptor}
	h.base = newBase(d, outer, ctx)

	keyCLIType := descriptor.KeyCLIType
	valueCLIType := descriptor.ValueCLIType
	if keyCLIType == nil {
		containerCLIType := descriptor.CLIType()
		if containerCLIType == nil {
			return nil, &xerr.InvalidBridgeState{Reason: "dictionary descriptor has no container CLI type"}
		}
		params := containerCLIType.DerivedFrom.Parameters()
		if len(params) != 2 {
			return nil, &xerr.InvalidBridgeState{Reason: "dictionary container type does not have exactly two type parameters"}
		}
		resolvedParams := containerCLIType.DerivedFrom.ResolvedParameters()
		k, err := resolvedParams[0].Resolve(containerCLIType.Ctx)
		if err != nil {
			return nil, err
		}
		v, err := resolvedParams[1].Resolve(containerCLIType.Ctx)
		if err != nil {
			return nil, err
		}
		keyCLIType, valueCLIType = k, v
	}

	kvCLIType, err := cli.KeyValuePairType.Instantiate([]cli.TypeExpr{keyCLIType, valueCLIType})
	if err != nil {
		return nil, err
	}
	keyDescriptor, err := ctx.TypeDescriptorFromCLIType(keyCLIType)
	if err != nil {
		return nil, err
	}
	valueDescriptor, err := ctx.TypeDescriptorFromCLIType(valueCLIType)
	if err != nil {
		return nil, err
	}
	kvDescriptor := NewCompositeTypeDescriptor(kvCLIType, []MemberDescriptor{
		{Name: "Key", TypeDescriptor: keyDescriptor},
		{Name: "Value", TypeDescriptor: valueDescriptor},
	})

	h.anonMember = MemberDescriptor{Name: "*", TypeDescriptor: kvDescriptor}
	return h, nil
}

func (h *dictionaryObjectHandler) descriptorCLIType() *cli.TypeInstance { return h.descriptor.CLIType() }

func (h *dictionaryObjectHandler) startElement(name xml.Name, attrs []xml.Attr) error {
	mh := newMemberHandler(h.d, h, h.ctx, h.anonMember)
	h.d.setCurrent(mh)
	return mh.startElement(name, attrs)
}

func (h *dictionaryObjectHandler) endElement(name xml.Name) error {
	v, err := h.descriptor.CLIType().InstantiateValue(h.items)
	if err != nil {
		return err
	}
	h.base.pushValue(v)
	return h.base.endElement(name)
}

func (h *dictionaryObjectHandler) pushValue(v cli.Value) { h.items = append(h.items, v) }

// singletonObjectHandler wraps a value whose wrapper element carries no
// collection or composite structure of its own: the single child simply
// decodes through whatever descriptor the Context derives for the CLI type,
// and the result passes straight through (no instantiate wrapping).
type singletonObjectHandler struct {
	base
	descriptor *SingletonTypeDescriptor
	anonMember MemberDescriptor
}

func newSingletonObjectHandler(d *driver, outer handler, ctx Context, descriptor *SingletonTypeDescriptor) *singletonObjectHandler {
	h := &singletonObjectHandler{descriptor: descriptor}
	h.base = newBase(d, outer, ctx)
	itemDescriptor, err := ctx.TypeDescriptorFromCLIType(descriptor.CLIType())
	if err != nil {
		// A singleton descriptor always carries a resolvable builtin CLI
		// type (IntPtr/UIntPtr); construction-time failure here means the
		// Context itself is misconfigured rather than a malformed payload.
		panic(err)
	}
	h.anonMember = MemberDescriptor{Name: "*", TypeDescriptor: itemDescriptor}
	return h
}

func (h *singletonObjectHandler) descriptorCLIType() *cli.TypeInstance { return h.descriptor.CLIType() }

func (h *singletonObjectHandler) startElement(name xml.Name, attrs []xml.Attr) error {
	mh := newMemberHandler(h.d, h, h.ctx, h.anonMember)
	h.d.setCurrent(mh)
	return mh.startElement(name, attrs)
}

func (h *singletonObjectHandler) endElement(name xml.Name) error {
	return h.base.endElement(name)
}

// basicObjectHandler accumulates character data for a leaf scalar element and
// hands the lexical result to the XSD deserializer once the element closes.
type basicObjectHandler struct {
	base
	xsType string
	chunks []string
}

func newBasicObjectHandler(d *driver, outer handler, ctx Context, xsType string) *basicObjectHandler {
	h := &basicObjectHandler{xsType: xsType}
	h.base = newBase(d, outer, ctx)
	return h
}

func (h *basicObjectHandler) characters(content string) error {
	h.chunks = append(h.chunks, content)
	return nil
}

func (h *basicObjectHandler) startElement(name xml.Name, _ []xml.Attr) error {
	return &xerr.InvalidDataContractPayload{Reason: fmt.Sprintf("basic object may not contain nested elements, got %s", name.Local)}
}

func (h *basicObjectHandler) endElement(name xml.Name) error {
	var v cli.Value
	if len(h.chunks) > 0 {
		bv, err := h.ctx.XSDeserialize(h.xsType, strings.Join(h.chunks, ""))
		if err != nil {
			return err
		}
		v = bv
	}
	if h.outerH != nil {
		h.outerH.pushValue(v)
	}
	return h.base.endElement(name)
}

// nilObjectHandler decodes an element carrying xsi:nil="true": it produces
// an explicit null of the CLI type its member descriptor names, or of the
// owning container's CLI type when the member descriptor names none.
type nilObjectHandler struct {
	base
	cliType *cli.TypeInstance
}

func newNilObjectHandler(d *driver, outer handler, ctx Context, cliType *cli.TypeInstance) *nilObjectHandler {
	h := &nilObjectHandler{cliType: cliType}
	h.base = newBase(d, outer, ctx)
	return h
}

func (h *nilObjectHandler) characters(_ string) error {
	return &xerr.InvalidDataContractPayload{Reason: "a nil object cannot have a content"}
}

func (h *nilObjectHandler) endElement(name xml.Name) error {
	ti := h.cliType
	if ti == nil {
		owner, ok := h.outerH.(hasDescriptorCLIType)
		if !ok {
			return &xerr.InvalidBridgeState{Reason: "nil encountered outside a described container"}
		}
		ti = owner.descriptorCLIType()
	}
	h.outerH.pushValue(&cli.BasicValue{TI: ti, Raw: nil})
	return h.base.endElement(name)
}
