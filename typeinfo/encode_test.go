package typeinfo

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/skdltmxn/pdbview/internal/pdbtest"
)

func TestMarshalJSONUsesReferences(t *testing.T) {
	c, s := newCache(t, linkedList()...)
	require.NoError(t, c.Load(s.Indices()))
	class, _ := c.Lookup(0x1002)

	data, err := json.Marshal(class)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Class", got["kind"])
	assert.Equal(t, "Node", got["name"])
	assert.Equal(t, "Struct", got["class_kind"])
	assert.EqualValues(t, 0x1002, got["index"])

	fields := got["fields"].([]any)
	require.Len(t, fields, 2)
	next := fields[1].(map[string]any)
	assert.Equal(t, "Member", next["kind"], "inline fields are encoded in full")
	assert.Equal(t, map[string]any{"ref": float64(0x1000)}, next["underlying_type"])

	ptr, _ := c.Lookup(0x1000)
	data, err = json.Marshal(ptr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"underlying_type":{"ref":4098}`)
	assert.Contains(t, string(data), `"kind":"Ptr64"`)
}

func TestMarshalJSONTypeMap(t *testing.T) {
	c, s := newCache(t, linkedList()...)
	require.NoError(t, c.Load(s.Indices()))

	types := make(map[TypeIndex]Node)
	for ti, n := range c.Types() {
		types[ti] = n
	}
	data, err := json.Marshal(types)
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 4)
	assert.Equal(t, "Primitive", got["116"]["kind"])
	assert.Equal(t, "I32", got["116"]["primitive_kind"])
}

func TestMemberAccess(t *testing.T) {
	c, _ := newCache(t,
		pdbtest.FieldList(
			pdbtest.MemberAttrs(pdbtest.AccessPrivate, 0x74, 0, "secret"),
			pdbtest.MemberAttrs(0, 0x74, 4, "plain"),
		),
	)
	n, err := c.Resolve(0x1000)
	require.NoError(t, err)
	fields := n.(*FieldList).Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "private", fields[0].(*Member).Access)

	data, err := json.Marshal(fields[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"Member","name":"secret","underlying_type":{"ref":116},"offset":0,"access":"private"}`, string(data))

	data, err = json.Marshal(fields[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"access":null`)
}

func TestEnumVariantValues(t *testing.T) {
	v := &EnumVariant{Name: "Neg", Value: Literal{Kind: LitI32, Bits: 0xFFFFFFFFFFFFFFFE}}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"EnumVariant","name":"Neg","value":{"kind":"I32","value":-2}}`, string(data))
	assert.Equal(t, "-2", v.Value.String())
}

func TestEncodeMsgpack(t *testing.T) {
	c, s := newCache(t, linkedList()...)
	require.NoError(t, c.Load(s.Indices()))
	class, _ := c.Lookup(0x1002)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	require.NoError(t, enc.Encode(class))

	var got map[string]any
	require.NoError(t, msgpack.NewDecoder(&buf).Decode(&got))
	assert.Equal(t, "Class", got["kind"])
	assert.Equal(t, "Node", got["name"])

	fields := got["fields"].([]any)
	require.Len(t, fields, 2)
	ref := fields[1].(map[string]any)["underlying_type"].(map[string]any)
	assert.EqualValues(t, 0x1000, ref["ref"])
}
