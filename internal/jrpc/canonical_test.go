package jrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysAndSkipsWhitespace(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"workerId":    "w",
		"requesterId": "r",
		"updateIndex": 3,
		"nested":      map[string]any{"b": true, "a": []any{"x", int64(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"nested":{"a":["x",1],"b":true},"requesterId":"r","updateIndex":3,"workerId":"w"}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(got))
}

func TestMarshalCanonical_LineSeparatorsStayLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonical_Numbers(t *testing.T) {
	got, err := MarshalCanonical([]any{float64(5), json.Number("7")})
	require.NoError(t, err)
	assert.Equal(t, `[5,7]`, string(got))

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
}

func TestCanonicalHash_StableAcrossKeyOrder(t *testing.T) {
	a, err := CanonicalHash("tcf/test/v1", map[string]any{"x": "1", "y": "2"})
	require.NoError(t, err)
	b, err := CanonicalHash("tcf/test/v1", map[string]any{"y": "2", "x": "1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := CanonicalHash("tcf/other/v1", map[string]any{"x": "1", "y": "2"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
