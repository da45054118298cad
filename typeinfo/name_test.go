package typeinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

func TestTypeName(t *testing.T) {
	c, s := newCache(t,
		pdbtest.Class{Name: "Widget", Size: 4}.Bytes(),     // 0x1000
		pdbtest.Pointer(0x1000, pdbtest.PtrNear64),         // 0x1001
		pdbtest.Array(0x74, 0x23, 40, 120),                 // 0x1002
		pdbtest.Modifier(0x0020, 1),                        // 0x1003
		pdbtest.BitField(0x75, 3, 0),                       // 0x1004
		pdbtest.ArgList(0x1001, 0x0041),                    // 0x1005
		pdbtest.Procedure(0, 2, 0x1005),                    // 0x1006
		pdbtest.MFunction(0x30, 0x1000, 0x1001, 0, 0x1005), // 0x1007
		pdbtest.Pointer(0x1fff, pdbtest.PtrNear64),         // 0x1008
		pdbtest.Enum(0, 0x74, 0, "Mode"),                   // 0x1009
	)
	require.NoError(t, c.Load(s.Indices()))
	require.NoError(t, c.Complete())

	tests := []struct {
		ti   TypeIndex
		want string
	}{
		{0x1000, "Widget"},
		{0x1001, "Widget*"},
		{0x1002, "int32_t[0xA][0xC]"},
		{0x1003, "unsigned char"},
		{0x1004, "uint32_t:3"},
		{0x1005, "<ArgumentList>"},
		{0x1006, "void (*function)Widget*,double"},
		{0x1007, "bool (*function)Widget*,double"},
		{0x1008, "<UNRESOLVED_POINTER_TYPE>"},
		{0x1009, "Mode"},
	}
	for _, tt := range tests {
		n, ok := c.Lookup(tt.ti)
		require.True(t, ok, "index 0x%x", uint32(tt.ti))
		assert.Equal(t, tt.want, TypeName(n))
	}
}

func TestPrimitiveTypeNames(t *testing.T) {
	c, _ := newCache(t)

	tests := map[TypeIndex]string{
		0x0003: "void",
		0x0010: "char",
		0x0070: "char",
		0x0068: "int8_t",
		0x0069: "uint8_t",
		0x0011: "int16_t",
		0x0073: "uint16_t",
		0x0012: "int32_t",
		0x0075: "uint32_t",
		0x0013: "int64_t",
		0x0077: "uint64_t",
		0x0040: "float",
		0x0071: "WChar",
		0x0603: "void*",
	}
	for ti, want := range tests {
		n, err := c.Resolve(ti)
		require.NoError(t, err)
		assert.Equal(t, want, TypeName(n), "index 0x%x", uint32(ti))
	}
}

func TestTypeNameCycle(t *testing.T) {
	c, _ := newCache(t,
		pdbtest.Modifier(0x1001, 0),
		pdbtest.Modifier(0x1000, 0),
	)
	n, err := c.Resolve(0x1000)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(TypeName(n), "..."))
}
