package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordPreservesInsertionOrder(t *testing.T) {
	r := New()
	r.Set("case_name", String("Roe"))
	r.Set("court", String("NY"))
	r.Set("agreement", Float(0.5))
	r.Set("court", String("CA"))

	require.Equal(t, []string{"case_name", "court", "agreement"}, r.Keys())
	v, ok := r.Get("court")
	require.True(t, ok)
	require.Equal(t, "CA", v.String())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.Equal(t, `{"case_name":"Roe","court":"CA","agreement":0.5}`, string(b))
}

func TestRecordUnmarshalKeepsSourceOrder(t *testing.T) {
	raw := `{"zeta":1,"alpha":[1,"b",null],"mid":{"y":true,"x":2.25},"nil":null}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.Equal(t, []string{"zeta", "alpha", "mid", "nil"}, r.Keys())

	zeta, _ := r.Get("zeta")
	require.Equal(t, KindInt, zeta.Kind())

	mid, _ := r.Get("mid")
	nested, ok := mid.AsMap()
	require.True(t, ok)
	require.Equal(t, []string{"y", "x"}, nested.Keys())

	nilv, ok := r.Get("nil")
	require.True(t, ok)
	require.True(t, nilv.IsNull())

	b, err := json.Marshal(&r)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(b))
}

func TestRecordUnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
}

func TestDeleteKeepsRemainingOrder(t *testing.T) {
	r := FromFields(
		Field{Name: "id", Value: Int(1)},
		Field{Name: "case_name", Value: String("A")},
		Field{Name: "court", Value: String("NY")},
	)
	require.True(t, r.Delete("id"))
	require.False(t, r.Delete("id"))
	require.Equal(t, []string{"case_name", "court"}, r.Keys())
	require.True(t, r.Has("court"))
}

func TestValueStringForms(t *testing.T) {
	require.Equal(t, "a, b", List(String("a"), String("b")).String())
	require.Equal(t, "1999", Int(1999).String())
	require.Equal(t, "1.5", Float(1.5).String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "", Null().String())
	require.Equal(t, `{"k":"v"}`, Map(FromFields(Field{Name: "k", Value: String("v")})).String())
}

func TestCloneIsIndependent(t *testing.T) {
	r := FromFields(Field{Name: "a", Value: Int(1)})
	c := r.Clone()
	c.Set("b", Int(2))
	require.Equal(t, 1, r.Len())
	require.Equal(t, 2, c.Len())
	require.False(t, r.Equal(c))
}

func TestFromAny(t *testing.T) {
	require.True(t, FromAny(nil).IsNull())
	require.True(t, FromAny([]string{"x", "y"}).Equal(List(String("x"), String("y"))))
	require.Equal(t, KindInt, FromAny(json.Number("12")).Kind())
	require.Equal(t, KindFloat, FromAny(json.Number("1.2")).Kind())

	m := FromAny(map[string]any{"b": 1, "a": "x"})
	rec, ok := m.AsMap()
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, rec.Keys())
}
