// Package cli implements the CLI Type Model and CLI Value Model: a nominal,
// generic-aware type system with parameter binding/resolution, per-context
// instance interning, cycle-guarded stringification, and intrinsic types
// with custom member-combinators. It is the common target of both the NRBF
// and Data Contract XML front-ends.
//
// The shape of the caches here (map keyed by pointer identity, a resolved/
// unresolved slot per parameter) follows the same pattern as the teacher's
// typeResolver in type.go: a small number of maps guarding lazy, idempotent
// construction, with the Type/TypeParam pointer itself standing in for
// Python's id().
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// Namespace is a name plus an optional parent; its string form is the
// dotted concatenation of the chain. The empty-name root is the sentinel.
type Namespace struct {
	Name   string
	Parent *Namespace
}

func (n *Namespace) String() string {
	if n == nil {
		return ""
	}
	outer := n.Parent.String()
	if outer != "" {
		return outer + "." + n.Name
	}
	return n.Name
}

// RootNamespace is the sentinel namespace with an empty name and no parent.
var RootNamespace = &Namespace{Name: ""}

// InternalNamespace hosts types that exist only as decoder plumbing (Array<T>).
var InternalNamespace = &Namespace{Name: "__internal__", Parent: RootNamespace}

// TypeParam is an unbound symbolic name, e.g. T, TKey. Two TypeParams are
// distinct even if they share a Name; identity is by pointer.
type TypeParam struct {
	Name string
}

// BoundTypeParam is a (TypeParam, ordinal, owning Type) triple, created only
// as part of a Type's declaration list.
type BoundTypeParam struct {
	DerivedFrom *TypeParam
	Ordinal     int
	BoundTo     *Type
}

func (b *BoundTypeParam) Name() string { return b.DerivedFrom.Name }

// TypeResolutionContext is both the interning table used while resolving
// generic parameters and the cycle guard used while stringifying. One
// context is created per independent resolution (e.g. per NRBF decode, or
// fresh per Type.Instantiate), and is shared by every TypeInstance produced
// during that resolution.
type TypeResolutionContext struct {
	resolved map[*Type]*TypeInstance
	refs     map[*TypeParam]*TypeInstance
	reprs    map[*Type]string
}

func NewTypeResolutionContext() *TypeResolutionContext {
	return &TypeResolutionContext{
		resolved: make(map[*Type]*TypeInstance),
		refs:     make(map[*TypeParam]*TypeInstance),
		reprs:    make(map[*Type]string),
	}
}

// TypeExpr is the TypeResolvable sum: either a TypeBinding (a reference to an
// as-yet-unbound TypeParam) or a *TypeInstance (already resolved). Both
// Stringify and Resolve are meant to be total given a valid context.
type TypeExpr interface {
	Stringify(ctx *TypeResolutionContext) string
	Resolve(ctx *TypeResolutionContext) (*TypeInstance, error)
}

// TypeBinding resolves through ctx.refs, chaining through nested generic
// positions.
type TypeBinding struct {
	Ref *TypeParam
}

func (b *TypeBinding) Resolve(ctx *TypeResolutionContext) (*TypeInstance, error) {
	p, ok := ctx.refs[b.Ref]
	if !ok {
		return nil, &xerr.UnboundParameter{Name: b.Ref.Name}
	}
	return p.Resolve(ctx)
}

func (b *TypeBinding) Stringify(ctx *TypeResolutionContext) string {
	ti, err := b.Resolve(ctx)
	if err != nil {
		return "?"
	}
	return ti.Stringify(ctx)
}

// TypeMember is a member declaration: a name plus its (possibly still
// parametric) type expression.
type TypeMember struct {
	Name string
	Type TypeExpr
}

// BoundTypeMember is a (TypeMember, ordinal, owning Type) triple.
type BoundTypeMember struct {
	DerivedFrom *TypeMember
	Ordinal     int
	BoundTo     *Type
}

func (b *BoundTypeMember) Name() string    { return b.DerivedFrom.Name }
func (b *BoundTypeMember) TypeExpr() TypeExpr { return b.DerivedFrom.Type }

// MemberHandlerFunc produces the raw payload for an intrinsic type that is
// instantiated with member values (e.g. KeyValuePair's (Key, Value) tuple).
type MemberHandlerFunc func(ti *TypeInstance, memberValues []Value) (any, error)

// Type is a nominal, possibly-generic CLI type declaration. Types are
// created once at the model boundary (builtins, or when a previously-unseen
// class name is encountered while decoding) and are then treated as
// immutable; partial application produces a new Type that shares the same
// member declarations and TypeParam identities.
type Type struct {
	Name               string
	Namespace          *Namespace
	Intrinsic          bool
	DerivedFrom        *Type
	MemberHandler      MemberHandlerFunc
	parameters         []*BoundTypeParam
	resolvedParameters []TypeExpr // nil slot == open
	defaultParameters  []TypeExpr // nil slot == no default
	members            []*BoundTypeMember
	nameCache          map[string]*BoundTypeMember
}

// TypeOption customizes NewType.
type TypeOption func(*typeConfig)

type typeConfig struct {
	intrinsic         bool
	members           []TypeMember
	memberHandler     MemberHandlerFunc
	defaultParameters []TypeExpr
}

func WithIntrinsic() TypeOption { return func(c *typeConfig) { c.intrinsic = true } }

func WithTypeMembers(members []TypeMember) TypeOption {
	return func(c *typeConfig) { c.members = members }
}

func WithMemberHandler(fn MemberHandlerFunc) TypeOption {
	return func(c *typeConfig) { c.memberHandler = fn }
}

func WithDefaultParameters(defaults []TypeExpr) TypeOption {
	return func(c *typeConfig) { c.defaultParameters = defaults }
}

// NewType declares a fresh Type with unbound parameters.
func NewType(name string, namespace *Namespace, params []*TypeParam, opts ...TypeOption) *Type {
	var cfg typeConfig
	for _, o := range opts {
		o(&cfg)
	}
	resolved := make([]TypeExpr, len(params))
	defaults := make([]TypeExpr, len(params))
	copy(defaults, cfg.defaultParameters)
	return buildType(name, namespace, params, defaults, resolved, cfg.intrinsic, cfg.members, nil, cfg.memberHandler)
}

func buildType(
	name string,
	namespace *Namespace,
	paramSyms []*TypeParam,
	defaultParameters []TypeExpr,
	resolvedParameters []TypeExpr,
	intrinsic bool,
	memberDecls []TypeMember,
	derivedFrom *Type,
	handler MemberHandlerFunc,
) *Type {
	t := &Type{
		Name:        name,
		Namespace:   namespace,
		Intrinsic:   intrinsic,
		DerivedFrom: derivedFrom,
		MemberHandler: handler,
		nameCache:   make(map[string]*BoundTypeMember),
	}
	t.parameters = make([]*BoundTypeParam, len(paramSyms))
	for i, p := range paramSyms {
		t.parameters[i] = &BoundTypeParam{DerivedFrom: p, Ordinal: i, BoundTo: t}
	}
	t.resolvedParameters = resolvedParameters
	t.defaultParameters = defaultParameters
	t.members = make([]*BoundTypeMember, len(memberDecls))
	for i := range memberDecls {
		m := memberDecls[i]
		t.members[i] = &BoundTypeMember{DerivedFrom: &m, Ordinal: i, BoundTo: t}
	}
	return t
}

// Origin is the topmost derived_from chain walk, or self if this Type was
// never partially applied.
func (t *Type) Origin() *Type {
	o := t
	for o.DerivedFrom != nil {
		o = o.DerivedFrom
	}
	return o
}

func (t *Type) Parameters() []*BoundTypeParam       { return t.parameters }
func (t *Type) ResolvedParameters() []TypeExpr      { return t.resolvedParameters }
func (t *Type) Members() []*BoundTypeMember         { return t.members }

func (t *Type) MemberByIndex(i int) (*BoundTypeMember, error) {
	if i < 0 || i >= len(t.members) {
		return nil, fmt.Errorf("%s has no member at index %d", t.String(), i)
	}
	return t.members[i], nil
}

func (t *Type) MemberByName(name string) (*BoundTypeMember, error) {
	if m, ok := t.nameCache[name]; ok {
		return m, nil
	}
	for _, m := range t.members {
		if m.DerivedFrom.Name == name {
			t.nameCache[name] = m
			return m, nil
		}
	}
	return nil, fmt.Errorf("%s has no member %s", t.String(), name)
}

func (t *Type) GetParameterByName(name string) *TypeParam {
	for _, p := range t.parameters {
		if p.Name() == name {
			return p.DerivedFrom
		}
	}
	return nil
}

func (t *Type) String() string { return t.Stringify(NewTypeResolutionContext()) }

// Stringify writes namespace.name plus, if parameters exist, <p1, p2, …>
// where unresolved slots print "?". ctx.reprs is used as a cycle sentinel:
// on re-entry it emits "...".
func (t *Type) Stringify(ctx *TypeResolutionContext) string {
	if s, ok := ctx.reprs[t]; ok {
		return s
	}
	ctx.reprs[t] = "..."

	paramList := ""
	if len(t.parameters) > 0 {
		parts := make([]string, len(t.resolvedParameters))
		for i, p := range t.resolvedParameters {
			if p == nil {
				parts[i] = "?"
			} else {
				parts[i] = p.Stringify(ctx)
			}
		}
		paramList = "<" + strings.Join(parts, ", ") + ">"
	}

	ns := t.Namespace.String()
	if ns != "" {
		ns += "."
	}
	s := ns + t.Name + paramList
	ctx.reprs[t] = s
	return s
}

// Resolve fails with UnresolvedParameters if any slot is still open.
// Otherwise it registers each parameter's resolved expression into
// ctx.refs and returns a TypeInstance interned by Type identity.
func (t *Type) Resolve(ctx *TypeResolutionContext) (*TypeInstance, error) {
	if ti, ok := ctx.resolved[t]; ok {
		return ti, nil
	}
	for i, bp := range t.parameters {
		resolvable := t.resolvedParameters[i]
		if resolvable == nil {
			return nil, &xerr.UnresolvedParameters{TypeName: t.String()}
		}
		resolvedTi, err := resolvable.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		ctx.refs[bp.DerivedFrom] = resolvedTi
	}
	ti := newTypeInstance(ctx, t, "", nil)
	ctx.resolved[t] = ti
	return ti, nil
}

// Partial accepts a left-to-right positional list of TypeExprs; the slice
// must not exceed the parameter count. For each slot, if it is already
// resolved the supplied value must be absent (else AlreadyBound); otherwise
// a supplied value fills it.
func (t *Type) Partial(positional []TypeExpr) (*Type, error) {
	if len(positional) > len(t.parameters) {
		return nil, &xerr.ArityMismatch{Name: t.String(), Expected: len(t.parameters), Got: len(positional)}
	}
	newResolved := make([]TypeExpr, len(t.parameters))
	for i, existing := range t.resolvedParameters {
		var supplied TypeExpr
		if i < len(positional) {
			supplied = positional[i]
		}
		if existing == nil {
			newResolved[i] = supplied
		} else if supplied != nil {
			return nil, &xerr.AlreadyBound{TypeName: t.String(), Param: t.parameters[i].Name()}
		} else {
			newResolved[i] = existing
		}
	}
	return t.withResolvedParameters(newResolved), nil
}

// PartialMap is the keyed form of Partial: a mapping TypeParam -> TypeExpr.
func (t *Type) PartialMap(bindings map[*TypeParam]TypeExpr) (*Type, error) {
	newResolved := make([]TypeExpr, len(t.parameters))
	for i, bp := range t.parameters {
		supplied, has := bindings[bp.DerivedFrom]
		existing := t.resolvedParameters[i]
		if existing == nil {
			if has {
				newResolved[i] = supplied
			}
		} else if has {
			return nil, &xerr.AlreadyBound{TypeName: t.String(), Param: bp.Name()}
		} else {
			newResolved[i] = existing
		}
	}
	return t.withResolvedParameters(newResolved), nil
}

func (t *Type) withResolvedParameters(resolved []TypeExpr) *Type {
	memberDecls := make([]TypeMember, len(t.members))
	for i, m := range t.members {
		memberDecls[i] = *m.DerivedFrom
	}
	paramSyms := make([]*TypeParam, len(t.parameters))
	for i, p := range t.parameters {
		paramSyms[i] = p.DerivedFrom
	}
	return buildType(t.Name, t.Namespace, paramSyms, t.defaultParameters, resolved, t.Intrinsic, memberDecls, t, t.MemberHandler)
}

// WithMembers clones the Type with a new member declaration list, keeping
// everything else (including DerivedFrom) as-is. Used by the NRBF bridge to
// upgrade a provisionally memberless Type once its member layout is known.
func (t *Type) WithMembers(members []TypeMember) *Type {
	paramSyms := make([]*TypeParam, len(t.parameters))
	for i, p := range t.parameters {
		paramSyms[i] = p.DerivedFrom
	}
	return buildType(t.Name, t.Namespace, paramSyms, t.defaultParameters, t.resolvedParameters, t.Intrinsic, members, t.DerivedFrom, t.MemberHandler)
}

// Instantiate is Partial(params).Resolve(fresh ctx).
func (t *Type) Instantiate(positional []TypeExpr) (*TypeInstance, error) {
	p, err := t.Partial(positional)
	if err != nil {
		return nil, err
	}
	return p.Resolve(NewTypeResolutionContext())
}

// InstantiateMap is the keyed form of Instantiate.
func (t *Type) InstantiateMap(bindings map[*TypeParam]TypeExpr) (*TypeInstance, error) {
	p, err := t.PartialMap(bindings)
	if err != nil {
		return nil, err
	}
	return p.Resolve(NewTypeResolutionContext())
}

// TypeInstanceMember is a member view resolved against a TypeInstance's
// context.
type TypeInstanceMember struct {
	DerivedFrom *BoundTypeMember
	Type        *TypeInstance
}

func (m *TypeInstanceMember) Ordinal() int { return m.DerivedFrom.Ordinal }
func (m *TypeInstanceMember) Name() string { return m.DerivedFrom.Name() }

// TypeInstance is a Type resolved against a TypeResolutionContext:
// (derived_from, context, optional builtin_name, optional member_handler).
// Its members view resolves each member's type expression lazily.
type TypeInstance struct {
	Ctx           *TypeResolutionContext
	DerivedFrom   *Type
	BuiltinName   string
	MemberHandler MemberHandlerFunc
	memberCache   []*TypeInstanceMember
}

func newTypeInstance(ctx *TypeResolutionContext, derivedFrom *Type, builtinName string, handler MemberHandlerFunc) *TypeInstance {
	h := handler
	if h == nil {
		h = derivedFrom.MemberHandler
	}
	return &TypeInstance{
		Ctx:           ctx,
		DerivedFrom:   derivedFrom,
		BuiltinName:   builtinName,
		MemberHandler: h,
		memberCache:   make([]*TypeInstanceMember, len(derivedFrom.members)),
	}
}

// NewTypeInstance is exported for callers (e.g. the bridge) constructing a
// TypeInstance directly rather than via Type.Resolve.
func NewTypeInstance(ctx *TypeResolutionContext, derivedFrom *Type, builtinName string, handler MemberHandlerFunc) *TypeInstance {
	return newTypeInstance(ctx, derivedFrom, builtinName, handler)
}

func (ti *TypeInstance) String() string { return ti.Stringify(ti.Ctx) }

// Stringify, like the Python original, always renders against its own
// context rather than the ctx argument: the instance's resolution context is
// also its cycle-guard environment.
func (ti *TypeInstance) Stringify(_ *TypeResolutionContext) string {
	return ti.DerivedFrom.Stringify(ti.Ctx)
}

func (ti *TypeInstance) Resolve(_ *TypeResolutionContext) (*TypeInstance, error) { return ti, nil }

func (ti *TypeInstance) Member(i int) (*TypeInstanceMember, error) {
	if i < 0 || i >= len(ti.memberCache) {
		return nil, fmt.Errorf("%s has no member at index %d", ti, i)
	}
	if ti.memberCache[i] == nil {
		bm := ti.DerivedFrom.members[i]
		resolved, err := bm.DerivedFrom.Type.Resolve(ti.Ctx)
		if err != nil {
			return nil, err
		}
		ti.memberCache[i] = &TypeInstanceMember{DerivedFrom: bm, Type: resolved}
	}
	return ti.memberCache[i], nil
}

func (ti *TypeInstance) MemberByName(name string) (*TypeInstanceMember, error) {
	bm, err := ti.DerivedFrom.MemberByName(name)
	if err != nil {
		return nil, err
	}
	return ti.Member(bm.Ordinal)
}

func sortedMemberValues(ti *TypeInstance, dict map[string]Value) ([]Value, error) {
	type kv struct {
		ord int
		v   Value
	}
	pairs := make([]kv, 0, len(dict))
	for name, v := range dict {
		bm, err := ti.DerivedFrom.MemberByName(name)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, kv{bm.Ordinal, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ord < pairs[j].ord })
	out := make([]Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.v
	}
	return out, nil
}

// Instantiate mirrors CLITypeInstance.instantiate(value, member_values,
// member_dict): member_values and member_dict are mutually exclusive;
// member_dict is converted to positional order by member ordinal. Intrinsic
// types with non-empty member_values require a member_handler, which
// produces the raw payload; the result is then a BasicValue. Otherwise the
// result is a CompositeObject, and a nil member_values is only accepted when
// the type declares no members.
func (ti *TypeInstance) Instantiate(value any, memberValues []Value, memberDict map[string]Value) (Value, error) {
	if memberValues == nil {
		if len(ti.DerivedFrom.members) > 0 && memberDict != nil {
			mv, err := sortedMemberValues(ti, memberDict)
			if err != nil {
				return nil, err
			}
			memberValues = mv
		}
	} else if memberDict != nil {
		return nil, &xerr.InvalidInstantiation{Reason: "cannot specify member_values and member_dict at the same time"}
	}

	if ti.DerivedFrom.Intrinsic {
		if len(memberValues) > 0 {
			if ti.MemberHandler == nil {
				return nil, &xerr.InvalidInstantiation{Reason: fmt.Sprintf("%s is an intrinsic type and no member_handler is provided", ti)}
			}
			raw, err := ti.MemberHandler(ti, memberValues)
			if err != nil {
				return nil, err
			}
			value = raw
		}
		return &BasicValue{TI: ti, Raw: value}, nil
	}

	if memberValues == nil && len(ti.DerivedFrom.members) > 0 {
		return nil, &xerr.InvalidInstantiation{Reason: fmt.Sprintf("either member_values or member_dict must be specified for %s", ti)}
	}
	return NewCompositeObject(ti, memberValues)
}

// InstantiateValue is Instantiate(value, nil, nil): a raw payload with no
// member decomposition.
func (ti *TypeInstance) InstantiateValue(value any) (Value, error) {
	return ti.Instantiate(value, nil, nil)
}

// InstantiateMembers is Instantiate(nil, memberValues, nil).
func (ti *TypeInstance) InstantiateMembers(memberValues []Value) (Value, error) {
	return ti.Instantiate(nil, memberValues, nil)
}

// InstantiateMemberDict is Instantiate(nil, nil, memberDict).
func (ti *TypeInstance) InstantiateMemberDict(memberDict map[string]Value) (Value, error) {
	return ti.Instantiate(nil, nil, memberDict)
}

// Value is the CLI Value Model sum: BasicValue, NullValue or CompositeObject.
type Value interface {
	TypeInstance() *TypeInstance
}

// BasicValue holds a scalar or intrinsic-container payload.
type BasicValue struct {
	TI  *TypeInstance
	Raw any
}

func (b *BasicValue) TypeInstance() *TypeInstance { return b.TI }

// NullValue represents an explicit null of a known type. The decoders in
// this module represent nulls as BasicValue{Raw: nil} instead (matching the
// original implementation, which never constructs this variant either); it
// is retained to keep the Value sum complete per the data model.
type NullValue struct {
	TI *TypeInstance
}

func (n *NullValue) TypeInstance() *TypeInstance { return n.TI }

// CompositeObject is a user-class instance: an ordered sequence of member
// values matching type_instance.derived_from.members 1:1.
type CompositeObject struct {
	TI      *TypeInstance
	Members []Value
}

func (c *CompositeObject) TypeInstance() *TypeInstance { return c.TI }

func (c *CompositeObject) MemberByIndex(i int) Value { return c.Members[i] }

func (c *CompositeObject) MemberByName(name string) (Value, error) {
	m, err := c.TI.MemberByName(name)
	if err != nil {
		return nil, err
	}
	return c.Members[m.Ordinal()], nil
}

// NewCompositeObject validates that members has exactly as many entries as
// type_instance.derived_from.members; a mismatch is fatal per §3.2.
func NewCompositeObject(ti *TypeInstance, members []Value) (*CompositeObject, error) {
	expected := len(ti.DerivedFrom.members)
	if len(members) != expected {
		return nil, &xerr.MemberCountMismatch{TypeName: ti.String(), Got: len(members), Expected: expected}
	}
	return &CompositeObject{TI: ti, Members: members}, nil
}

// ArrayType is the internal, intrinsic Array<T> used to represent both NRBF
// arrays and the backing store of ArrayList/List<T>.
var ArrayType = NewType("Array", InternalNamespace, []*TypeParam{{Name: "T"}}, WithIntrinsic())

// ArrayOf instantiates Array<T> for a concrete element TypeInstance.
func ArrayOf(elem *TypeInstance) (*TypeInstance, error) {
	return ArrayType.Instantiate([]TypeExpr{elem})
}
