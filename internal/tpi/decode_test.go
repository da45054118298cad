package tpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
	"github.com/skdltmxn/pdbview/internal/stream"
)

// decodeOne frames raw as the only record of a stream and decodes it.
func decodeOne(t *testing.T, raw []byte) TypeData {
	t.Helper()
	s, err := ParseStream(pdbtest.TypeStream(0x1000, raw))
	require.NoError(t, err)
	rec, ok := s.Record(0x1000)
	require.True(t, ok)
	data, err := Decode(rec)
	require.NoError(t, err)
	return data
}

func TestDecodeClass(t *testing.T) {
	data := decodeOne(t, pdbtest.Class{
		Struct:     true,
		Count:      2,
		FieldList:  0x1001,
		Size:       0x12345,
		Name:       "Foo",
		UniqueName: ".?AUFoo@@",
	}.Bytes())

	c, ok := data.(*ClassRecord)
	require.True(t, ok)
	assert.Equal(t, LF_STRUCTURE, c.Kind)
	assert.Equal(t, uint16(2), c.MemberCount)
	assert.Equal(t, TypeIndex(0x1001), c.FieldList)
	assert.Equal(t, uint64(0x12345), c.Size)
	assert.Equal(t, "Foo", c.Name)
	assert.Equal(t, ".?AUFoo@@", c.UniqueName)
	assert.True(t, c.Properties.HasUniqueName())
	assert.False(t, c.Properties.IsForwardRef())
}

func TestDecodePointer(t *testing.T) {
	p, ok := decodeOne(t, pdbtest.Pointer(0x1003, pdbtest.PtrNear64)).(*PointerRecord)
	require.True(t, ok)
	assert.Equal(t, TypeIndex(0x1003), p.ReferentType)
	assert.Equal(t, PointerKindNear64, p.Attributes.Kind())
	assert.Equal(t, uint8(8), p.Attributes.Size())
	assert.False(t, p.Attributes.IsPointerToMember())
}

func TestDecodeArrayDimensions(t *testing.T) {
	a, ok := decodeOne(t, pdbtest.Array(0x74, 0x23, 40, 120)).(*ArrayRecord)
	require.True(t, ok)
	assert.Equal(t, []uint64{40, 120}, a.Dimensions)
	assert.Equal(t, uint64(120), a.Size())

	a, ok = decodeOne(t, pdbtest.NamedArray(0x74, 0x23, "ab", 40)).(*ArrayRecord)
	require.True(t, ok)
	assert.Equal(t, []uint64{40}, a.Dimensions)
	assert.Equal(t, "ab", a.Name)

	a, ok = decodeOne(t, pdbtest.NamedArray(0x74, 0x23, "grid", 0x10000, 120)).(*ArrayRecord)
	require.True(t, ok)
	assert.Equal(t, []uint64{0x10000, 120}, a.Dimensions)
	assert.Equal(t, "grid", a.Name)

	// Bytes that happen to look like an unknown leaf prefix are name bytes.
	a, ok = decodeOne(t, pdbtest.NamedArray(0x74, 0x23, "\xc3\xa9", 8)).(*ArrayRecord)
	require.True(t, ok)
	assert.Equal(t, []uint64{8}, a.Dimensions)
	assert.Equal(t, "\u00e9", a.Name)
}

func TestDecodeFieldList(t *testing.T) {
	data := decodeOne(t, pdbtest.FieldList(
		pdbtest.BaseClass(0x1005, 0),
		pdbtest.Member(0x74, 8, "count"),
		pdbtest.IntroVirtualMethod(0x1006, 0x10, "Run"),
		pdbtest.Method(2, 0x1007, "Get"),
		pdbtest.NestedType(0x1008, "Inner"),
		pdbtest.VFuncTab(0x1009),
		pdbtest.StaticMember(0x74, "instances"),
		pdbtest.Continuation(0x100a),
	))

	fl, ok := data.(*FieldListRecord)
	require.True(t, ok)
	assert.Equal(t, TypeIndex(0x100a), fl.Continuation)
	require.Len(t, fl.Fields, 7)

	base := fl.Fields[0].(*BaseClassRecord)
	assert.Equal(t, LF_BCLASS, base.Kind)
	assert.Equal(t, TypeIndex(0x1005), base.Type)

	m := fl.Fields[1].(*MemberRecord)
	assert.Equal(t, "count", m.Name)
	assert.Equal(t, uint64(8), m.Offset)
	assert.Equal(t, MemberAccessPublic, m.Attributes.Access())

	om := fl.Fields[2].(*OneMethodRecord)
	require.NotNil(t, om.VTableOffset)
	assert.Equal(t, uint32(0x10), *om.VTableOffset)
	assert.Equal(t, "Run", om.Name)

	ov := fl.Fields[3].(*OverloadedMethodRecord)
	assert.Equal(t, uint16(2), ov.Count)
	assert.Equal(t, TypeIndex(0x1007), ov.MethodList)

	assert.Equal(t, "Inner", fl.Fields[4].(*NestedTypeRecord).Name)
	assert.Equal(t, TypeIndex(0x1009), fl.Fields[5].(*VFuncTabRecord).Type)
	assert.Equal(t, "instances", fl.Fields[6].(*StaticMemberRecord).Name)
}

func TestDecodeEnumerateValue(t *testing.T) {
	w := &pdbtest.Writer{}
	w.U16(uint16(LF_ENUMERATE)).U16(3).U16(stream.LeafLong).U32(0xFFFFFFFE).Str("Neg")
	fl := decodeOne(t, pdbtest.FieldList(w.Bytes(), pdbtest.Enumerate(7, "Seven"))).(*FieldListRecord)
	require.Len(t, fl.Fields, 2)

	neg := fl.Fields[0].(*EnumerateRecord)
	assert.Equal(t, uint16(stream.LeafLong), neg.Value.Leaf)
	assert.Equal(t, int64(-2), int64(neg.Value.Value))

	seven := fl.Fields[1].(*EnumerateRecord)
	assert.Equal(t, uint16(0), seven.Value.Leaf)
	assert.Equal(t, uint64(7), seven.Value.Value)
}

func TestDecodeUnsupportedAndUnknownLeaves(t *testing.T) {
	_, err := Decode(&TypeRecord{Kind: LF_VTSHAPE, Data: []byte{1, 0, 0, 0}})
	assert.ErrorIs(t, err, ErrUnsupportedLeaf)

	_, err = Decode(&TypeRecord{Kind: 0x1fff})
	assert.ErrorIs(t, err, ErrUnknownLeaf)

	w := &pdbtest.Writer{}
	w.U16(uint16(LF_VFUNCOFF)).U16(0).U32(0x1000).U32(0)
	_, err = Decode(&TypeRecord{Kind: LF_FIELDLIST, Data: w.Bytes()})
	assert.ErrorIs(t, err, ErrUnsupportedLeaf)
}

func TestDecodeTruncatedRecord(t *testing.T) {
	_, err := Decode(&TypeRecord{Kind: LF_POINTER, Data: []byte{1, 2}})
	assert.ErrorIs(t, err, ErrInvalidTypeRecord)
}

func TestDecodeIDRecords(t *testing.T) {
	s, err := ParseStream(pdbtest.TypeStream(0x1000,
		pdbtest.StringID(`C:\src`),
		pdbtest.BuildInfo(0x1000, 0),
		pdbtest.FuncID(0, 0x1234, "main"),
	))
	require.NoError(t, err)

	rec, _ := s.Record(0x1000)
	data, err := Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, `C:\src`, data.(*StringIDRecord).Value)

	rec, _ = s.Record(0x1001)
	data, err = Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, []TypeIndex{0x1000, 0}, data.(*BuildInfoRecord).Args)

	rec, _ = s.Record(0x1002)
	data, err = Decode(rec)
	require.NoError(t, err)
	fn := data.(*FuncIDRecord)
	assert.Equal(t, LF_FUNC_ID, fn.Leaf())
	assert.Equal(t, TypeIndex(0x1234), fn.FunctionType)
	assert.Equal(t, "main", fn.Name)
}
