package dirtyjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStrictJSON(t *testing.T) {
	v, err := Decode(`{"a": 1, "b": [true, null]}`)
	require.NoError(t, err)
	obj := v.(map[string]any)
	assert.Equal(t, 1.0, obj["a"])
	assert.Equal(t, []any{true, nil}, obj["b"])
}

func TestDecodeMarkdownFence(t *testing.T) {
	in := "Here is the analysis you asked for:\n```json\n{\"pattern_found\": true, \"strength\": 0.8}\n```\nLet me know if you need more."
	obj, err := DecodeObject(in)
	require.NoError(t, err)
	assert.Equal(t, true, obj["pattern_found"])
	assert.Equal(t, 0.8, obj["strength"])
}

func TestDecodeSingleQuotesAndUnquotedKeys(t *testing.T) {
	obj, err := DecodeObject(`{type: 'loop', summary: 'keeps circling', strength: 0.7}`)
	require.NoError(t, err)
	assert.Equal(t, "loop", obj["type"])
	assert.Equal(t, "keeps circling", obj["summary"])
	assert.Equal(t, 0.7, obj["strength"])
}

func TestDecodeTrailingCommasAndComments(t *testing.T) {
	in := `{
		// model commentary
		"a": 1, /* inline */
		"b": [1, 2, 3,],
	}`
	obj, err := DecodeObject(in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, obj["a"])
	assert.Equal(t, []any{1.0, 2.0, 3.0}, obj["b"])
}

func TestDecodeTruncatedObject(t *testing.T) {
	obj, err := DecodeObject(`{"type": "confession", "summary": "admits the`)
	require.NoError(t, err)
	assert.Equal(t, "confession", obj["type"])
	assert.Equal(t, "admits the", obj["summary"])
}

func TestDecodePythonLiterals(t *testing.T) {
	obj, err := DecodeObject(`{"found": True, "extra": None}`)
	require.NoError(t, err)
	assert.Equal(t, true, obj["found"])
	assert.Nil(t, obj["extra"])
}

func TestDecodeNestedStructures(t *testing.T) {
	obj, err := DecodeObject(`{"patterns": [{"type": "fear", "strength": 0.9}, {"type": "loop"}]}`)
	require.NoError(t, err)
	patterns := obj["patterns"].([]any)
	require.Len(t, patterns, 2)
	first := patterns[0].(map[string]any)
	assert.Equal(t, "fear", first["type"])
	assert.Equal(t, 0.9, first["strength"])
}

func TestDecodeEscapes(t *testing.T) {
	obj, err := DecodeObject(`{"s": "line\none \"quoted\" tab\there"}`)
	require.NoError(t, err)
	assert.Equal(t, "line\none \"quoted\" tab\there", obj["s"])
}

func TestDecodeNoValue(t *testing.T) {
	_, err := Decode("I could not find any recurring patterns in this conversation.")
	assert.ErrorIs(t, err, ErrNoValue)

	_, err = Decode("")
	assert.ErrorIs(t, err, ErrNoValue)
}

func TestDecodeObjectRejectsArray(t *testing.T) {
	_, err := DecodeObject(`[1, 2, 3]`)
	assert.Error(t, err)
}

func TestDecodeProsePrefixAndSuffix(t *testing.T) {
	in := `Sure! Based on the history, { "type": "desire", "strength": 0.65 } — that is my read.`
	obj, err := DecodeObject(in)
	require.NoError(t, err)
	assert.Equal(t, "desire", obj["type"])
	assert.Equal(t, 0.65, obj["strength"])
}
