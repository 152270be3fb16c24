package datacontract

import (
	"testing"

	"github.com/moriyoshi/dotnetserde/cli"
	"github.com/moriyoshi/dotnetserde/internal/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestBuiltins(t *testing.T) *cli.Builtins {
	t.Helper()
	b, err := cli.NewBuiltins(cli.NewTypeResolutionContext())
	require.NoError(t, err)
	return b
}

func TestDecodeBasicStringMember(t *testing.T) {
	b := newTestBuiltins(t)
	dz := NewDeserializer(b)
	descriptor := MemberDescriptor{
		Name:           "Name",
		TypeDescriptor: NewBasicTypeDescriptor(b.String),
	}
	v, err := dz.DecodeString(`<Name xmlns="http://schemas.datacontract.org/2004/07/">hello</Name>`, descriptor)
	require.NoError(t, err)
	bv, ok := v.(*cli.BasicValue)
	require.True(t, ok)
	assert.Equal(t, "hello", bv.Raw)
}

func TestDecodeXsiNilMember(t *testing.T) {
	b := newTestBuiltins(t)
	dz := NewDeserializer(b)
	descriptor := MemberDescriptor{
		Name:           "Name",
		TypeDescriptor: NewBasicTypeDescriptor(b.String),
	}
	xml := `<Name xmlns:i="http://www.w3.org/2001/XMLSchema-instance" i:nil="true"></Name>`
	v, err := dz.DecodeString(xml, descriptor)
	require.NoError(t, err)
	bv, ok := v.(*cli.BasicValue)
	require.True(t, ok)
	assert.Nil(t, bv.Raw)
	assert.Same(t, b.String, bv.TI)
}

func TestDecodeCompositeTwoMembers(t *testing.T) {
	b := newTestBuiltins(t)
	pointType := cli.NewType("Point", cli.SystemNamespace, nil, cli.WithTypeMembers([]cli.TypeMember{
		{Name: "X", Type: b.Int32},
		{Name: "Y", Type: b.Int32},
	}))
	ti, err := pointType.Resolve(cli.NewTypeResolutionContext())
	require.NoError(t, err)

	descriptor := MemberDescriptor{
		Name: "Point",
		TypeDescriptor: NewCompositeTypeDescriptor(ti, []MemberDescriptor{
			{Name: "X", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
			{Name: "Y", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
		}),
	}

	dz := NewDeserializer(b)
	v, err := dz.DecodeString(`<Point><X>3</X><Y>4</Y></Point>`, descriptor)
	require.NoError(t, err)
	co, ok := v.(*cli.CompositeObject)
	require.True(t, ok)
	xv, err := co.MemberByName("X")
	require.NoError(t, err)
	assert.Equal(t, int32(3), xv.(*cli.BasicValue).Raw)
}

func TestDecodeCompositeRejectsExcessiveNesting(t *testing.T) {
	b := newTestBuiltins(t)
	pointType := cli.NewType("Point", cli.SystemNamespace, nil, cli.WithTypeMembers([]cli.TypeMember{
		{Name: "X", Type: b.Int32},
		{Name: "Y", Type: b.Int32},
	}))
	ti, err := pointType.Resolve(cli.NewTypeResolutionContext())
	require.NoError(t, err)

	descriptor := MemberDescriptor{
		Name: "Point",
		TypeDescriptor: NewCompositeTypeDescriptor(ti, []MemberDescriptor{
			{Name: "X", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
			{Name: "Y", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
		}),
	}

	dz := NewDeserializer(b, WithMaxDepth(1))
	_, err = dz.DecodeString(`<Point><X>3</X><Y>4</Y></Point>`, descriptor)
	var md *xerr.MaxDepthExceeded
	require.ErrorAs(t, err, &md)
	assert.Equal(t, 1, md.Limit)
}

func TestDecodeArrayOfInt(t *testing.T) {
	b := newTestBuiltins(t)
	listTI, err := cli.ListType.Instantiate([]cli.TypeExpr{b.Int32})
	require.NoError(t, err)

	descriptor := MemberDescriptor{
		Name: "Items",
		TypeDescriptor: NewArrayTypeDescriptor(listTI, b.Int32, NewBasicTypeDescriptor(b.Int32)),
	}
	dz := NewDeserializer(b)
	v, err := dz.DecodeString(`<Items><int>1</int><int>2</int><int>3</int></Items>`, descriptor)
	require.NoError(t, err)
	bv, ok := v.(*cli.BasicValue)
	require.True(t, ok)
	items, ok := bv.Raw.([]cli.Value)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, int32(1), items[0].(*cli.BasicValue).Raw)
}

func TestValidateDescriptorCatchesDuplicateMembers(t *testing.T) {
	b := newTestBuiltins(t)
	d := NewCompositeTypeDescriptor(b.Object, []MemberDescriptor{
		{Name: "X", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
		{Name: "X", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
	})
	err := ValidateDescriptor(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate member tag name")
}

func TestValidateDescriptorClean(t *testing.T) {
	b := newTestBuiltins(t)
	d := NewCompositeTypeDescriptor(b.Object, []MemberDescriptor{
		{Name: "X", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
		{Name: "Y", TypeDescriptor: NewBasicTypeDescriptor(b.Int32)},
	})
	assert.NoError(t, ValidateDescriptor(d))
}

func TestLongSerializerRoutesByBitWidth(t *testing.T) {
	b := newTestBuiltins(t)
	s := &longSerializer{int32TI: b.Int32, int64TI: b.Int64}

	bv, err := s.deserialize("2147483647")
	require.NoError(t, err)
	assert.Same(t, b.Int32, bv.TI)

	bv, err = s.deserialize("2147483648")
	require.NoError(t, err)
	assert.Same(t, b.Int64, bv.TI)

	bv, err = s.deserialize("-2147483648")
	require.NoError(t, err)
	assert.Same(t, b.Int32, bv.TI)

	bv, err = s.deserialize("-2147483649")
	require.NoError(t, err)
	assert.Same(t, b.Int64, bv.TI)

	bv, err = s.deserialize("0")
	require.NoError(t, err)
	assert.Same(t, b.Int32, bv.TI)
}
