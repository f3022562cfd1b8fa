package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_KeyOrderAndEscaping(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b":    1,
		"a":    "<x & y>",
		"list": []any{true, "\u2028"},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":\"<x & y>\",\"b\":1,\"list\":[true,\"\u2028\"]}", string(data))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	data, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Record{ID: "a", Type: "Book", Label: "A"}
	b := Record{ID: "b", Type: "Book", Label: "B", Values: []Value{{Property: "p", Kind: KindLink, Target: "a"}}}

	f1, err := Fingerprint([]Record{a, b})
	require.NoError(t, err)
	f2, err := Fingerprint([]Record{b, a})
	require.NoError(t, err)

	assert.Equal(t, f1, f2)
	assert.Len(t, f1, 64)
}

func TestFingerprint_IgnoresTokens(t *testing.T) {
	rec := Record{ID: "a", Values: []Value{{Property: "p", Kind: KindLink, Target: "b"}}}
	f1, err := Fingerprint([]Record{rec})
	require.NoError(t, err)

	rec.Values[0].Token = "tok-1"
	f2, err := Fingerprint([]Record{rec})
	require.NoError(t, err)

	assert.Equal(t, f1, f2)
}

func TestFingerprint_DetectsChanges(t *testing.T) {
	f1, err := Fingerprint([]Record{{ID: "a", Label: "one"}})
	require.NoError(t, err)
	f2, err := Fingerprint([]Record{{ID: "a", Label: "two"}})
	require.NoError(t, err)

	assert.NotEqual(t, f1, f2)
}
