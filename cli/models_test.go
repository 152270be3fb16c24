package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moriyoshi/dotnetserde/internal/difftest"
)

func TestNamespaceString(t *testing.T) {
	assert.Equal(t, "", RootNamespace.String())
	ns := &Namespace{Name: "Generic", Parent: &Namespace{Name: "Collections", Parent: SystemNamespace}}
	assert.Equal(t, "System.Collections.Generic", ns.String())
}

func mustResolve(t *testing.T, ty *Type) *TypeInstance {
	t.Helper()
	ti, err := ty.Resolve(NewTypeResolutionContext())
	require.NoError(t, err)
	return ti
}

func TestResolveSimpleType(t *testing.T) {
	pointType := NewType("Point", SystemNamespace, nil, WithTypeMembers([]TypeMember{
		{Name: "X", Type: mustResolve(t, Int32Type)},
		{Name: "Y", Type: mustResolve(t, Int32Type)},
	}))
	ctx := NewTypeResolutionContext()
	ti, err := pointType.Resolve(ctx)
	require.NoError(t, err)
	difftest.AssertEqual(t, "System.Point", ti.String())
}

func TestInstantiateGenericList(t *testing.T) {
	ctx := NewTypeResolutionContext()
	item, err := Int32Type.Resolve(ctx)
	require.NoError(t, err)
	listTI, err := ListType.Instantiate([]TypeExpr{item})
	require.NoError(t, err)
	difftest.AssertEqual(t, "System.Collections.Generic.List<System.Int32>", listTI.String())
}

func TestInstantiateGenericListArityMismatch(t *testing.T) {
	ctx := NewTypeResolutionContext()
	a, err := Int32Type.Resolve(ctx)
	require.NoError(t, err)
	b, err := StringType.Resolve(ctx)
	require.NoError(t, err)
	_, err = ListType.Instantiate([]TypeExpr{a, b})
	require.Error(t, err)
}

func TestPartialAlreadyBoundRejectsSecondBinding(t *testing.T) {
	ctx := NewTypeResolutionContext()
	item, err := Int32Type.Resolve(ctx)
	require.NoError(t, err)
	bound, err := ListType.Partial([]TypeExpr{item})
	require.NoError(t, err)

	other, err := StringType.Resolve(ctx)
	require.NoError(t, err)
	_, err = bound.Partial([]TypeExpr{other})
	require.Error(t, err)
}

func TestResolveUnresolvedParametersFails(t *testing.T) {
	_, err := ListType.Resolve(NewTypeResolutionContext())
	require.Error(t, err)
}

func TestCompositeObjectMemberAccess(t *testing.T) {
	pointType := NewType("Point", SystemNamespace, nil, WithTypeMembers([]TypeMember{
		{Name: "X", Type: mustResolve(t, Int32Type)},
		{Name: "Y", Type: mustResolve(t, Int32Type)},
	}))
	ti, err := pointType.Resolve(NewTypeResolutionContext())
	require.NoError(t, err)

	xv := &BasicValue{TI: ti, Raw: int32(3)}
	yv := &BasicValue{TI: ti, Raw: int32(4)}
	co, err := NewCompositeObject(ti, []Value{xv, yv})
	require.NoError(t, err)

	v, err := co.MemberByName("Y")
	require.NoError(t, err)
	assert.Equal(t, int32(4), v.(*BasicValue).Raw)
}

func TestNewCompositeObjectMemberCountMismatch(t *testing.T) {
	pointType := NewType("Point", SystemNamespace, nil, WithTypeMembers([]TypeMember{
		{Name: "X", Type: mustResolve(t, Int32Type)},
	}))
	ti, err := pointType.Resolve(NewTypeResolutionContext())
	require.NoError(t, err)
	_, err = NewCompositeObject(ti, nil)
	require.Error(t, err)
}

func TestArrayOf(t *testing.T) {
	ctx := NewTypeResolutionContext()
	item, err := Int32Type.Resolve(ctx)
	require.NoError(t, err)
	arrTI, err := ArrayOf(item)
	require.NoError(t, err)
	difftest.AssertEqual(t, "__internal__.Array<System.Int32>", arrTI.String())
}
