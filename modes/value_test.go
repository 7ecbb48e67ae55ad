package modes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue(ModeTranscription, json.RawMessage(`{"transcription": {"e1": {"text": "hello", "uncertain": true}}}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Transcription["e1"].Text)
	assert.True(t, v.Transcription["e1"].Uncertain)

	_, err = ParseValue(ModeTranscription, json.RawMessage(`{"classification": "c1"}`))
	assert.Error(t, err, "the transcription key is required")

	v, err = ParseValue(ModeClassification, json.RawMessage(`{"classification": "c1"}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", v.Classification)

	_, err = ParseValue(ModeClassification, json.RawMessage(`{}`))
	assert.Error(t, err, "an empty classification is meaningless")

	v, err = ParseValue(ModeEntity, json.RawMessage(`{"entities": [{"entity_type": "name", "offset": 0, "length": 3}]}`))
	require.NoError(t, err)
	require.Len(t, v.Entities, 1)
	assert.Equal(t, "name", v.Entities[0].EntityType)

	_, err = ParseValue(Mode("unknown"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestValueRoundTrip(t *testing.T) {
	v, err := ParseValue(ModeElements, json.RawMessage(`{"elements": [{"polygon": [[0,0],[1,0],[1,1]], "element_type": "t1"}]}`))
	require.NoError(t, err)

	back, err := FromMap(ModeElements, v.ToMap())
	require.NoError(t, err)
	assert.Equal(t, v.Elements, back.Elements)
}

func TestValueEqual(t *testing.T) {
	a, err := ParseValue(ModeClassification, json.RawMessage(`{"classification": "c1"}`))
	require.NoError(t, err)
	b, err := ParseValue(ModeClassification, json.RawMessage(`{"classification": "c1"}`))
	require.NoError(t, err)
	c, err := ParseValue(ModeClassification, json.RawMessage(`{"classification": "c2"}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestHasUncertainValue(t *testing.T) {
	uncertain := map[string]interface{}{
		"transcription": map[string]interface{}{
			"e1": map[string]interface{}{"text": "a", "uncertain": false},
			"e2": map[string]interface{}{"text": "b", "uncertain": true},
		},
	}
	assert.True(t, HasUncertainValue(ModeTranscription, uncertain))

	certain := map[string]interface{}{
		"transcription": map[string]interface{}{
			"e1": map[string]interface{}{"text": "a", "uncertain": false},
		},
	}
	assert.False(t, HasUncertainValue(ModeTranscription, certain))

	form := map[string]interface{}{
		"values": []interface{}{
			map[string]interface{}{"entity_type": "name", "value": "Bob", "uncertain": true},
		},
	}
	assert.True(t, HasUncertainValue(ModeEntityForm, form))

	// Other modes never carry the flag
	assert.False(t, HasUncertainValue(ModeClassification, map[string]interface{}{"classification": "c1"}))

	// Drifted shapes are tolerated
	assert.False(t, HasUncertainValue(ModeTranscription, map[string]interface{}{"transcription": "oops"}))
	assert.False(t, HasUncertainValue(ModeEntityForm, map[string]interface{}{"values": "oops"}))
}
