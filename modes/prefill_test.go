package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func TestPrefillTranscriptionFromImports(t *testing.T) {
	cfg := CampaignConfig{ConfidenceThreshold: floatPtr(0.8)}
	ctx := PrefillContext{
		ConfiguredElementIDs: []string{"e1", "e2", "e3"},
		ImportedTranscriptions: map[string]ImportedTranscription{
			"e1": {Text: "certain", Confidence: floatPtr(0.95)},
			"e2": {Text: "shaky", Confidence: floatPtr(0.4)},
		},
	}

	result := Prefill(ModeTranscription, cfg, ctx)
	assert.Equal(t, "certain", result.Value.Transcription["e1"].Text)
	assert.Equal(t, "shaky", result.Value.Transcription["e2"].Text)
	assert.Equal(t, "", result.Value.Transcription["e3"].Text, "elements without an import get an empty entry")
	assert.Equal(t, map[string]bool{"e2": true}, result.LowConfidence)
}

func TestPrefillTranscriptionFromParent(t *testing.T) {
	parent := Value{Mode: ModeTranscription, Transcription: map[string]TranscriptionEntry{
		"e1": {Text: "resumed", Uncertain: true},
	}}
	ctx := PrefillContext{
		Parent:               &parent,
		ConfiguredElementIDs: []string{"e1", "e2"},
		ImportedTranscriptions: map[string]ImportedTranscription{
			"e2": {Text: "ignored once a parent exists"},
		},
	}

	result := Prefill(ModeTranscription, CampaignConfig{}, ctx)
	assert.Equal(t, TranscriptionEntry{Text: "resumed", Uncertain: true}, result.Value.Transcription["e1"])
	assert.Equal(t, TranscriptionEntry{}, result.Value.Transcription["e2"])
	assert.Empty(t, result.LowConfidence)
}

func TestPrefillEntities(t *testing.T) {
	cfg := CampaignConfig{Types: []EntityTypeConfig{{EntityType: "name"}}}
	ctx := PrefillContext{
		TranscriptionText: "hello",
		ImportedEntities: []ImportedEntity{
			{Type: "name", Name: "hel", Offset: 0, Length: 3},
			{Type: "date", Name: "lo", Offset: 3, Length: 2},
			{Type: "name", Name: "out of bounds", Offset: 3, Length: 10},
		},
	}

	result := Prefill(ModeEntity, cfg, ctx)
	assert.Equal(t, []Entity{{EntityType: "name", Offset: 0, Length: 3}}, result.Value.Entities,
		"undeclared types and out-of-bounds entities are dropped")
}

func TestPrefillEntityForm(t *testing.T) {
	cfg := CampaignConfig{Fields: []FieldConfig{
		{Legend: "Identity", Mode: FieldGroupMode, Fields: []FieldConfig{
			{EntityType: "name", Instruction: "Last name", ConfidenceThreshold: floatPtr(0.9)},
		}},
		{EntityType: "place", Instruction: "Birth place"},
	}}
	ctx := PrefillContext{
		ImportedEntities: []ImportedEntity{
			{Type: "name", Name: "de", Confidence: floatPtr(0.5)},
			{Type: "name", Name: "Gaulle", Confidence: floatPtr(0.7)},
		},
	}

	result := Prefill(ModeEntityForm, cfg, ctx)
	assert.Len(t, result.Value.Fields, 2)
	assert.Equal(t, "de Gaulle", *result.Value.Fields[0].Value, "entities of the same type join into one suggestion")
	assert.Nil(t, result.Value.Fields[1].Value)
	assert.True(t, result.LowConfidence["name/Last name"], "average confidence is below the field threshold")
}

func TestPrefillElementsFromChildren(t *testing.T) {
	ctx := PrefillContext{
		AllowedElementTypes: []string{"line"},
		ChildElements: []ChildElement{
			{ID: "c1", Polygon: Polygon{{0, 0}, {10, 0}, {10, 10}}, TypeID: "line"},
			{ID: "c2", Polygon: Polygon{{0, 0}, {10, 0}, {10, 10}}, TypeID: "paragraph"},
		},
	}

	result := Prefill(ModeElements, CampaignConfig{}, ctx)
	assert.Len(t, result.Value.Elements, 1)
	assert.Equal(t, "line", result.Value.Elements[0].ElementType)
}

func TestPrefillGroupsFromParent(t *testing.T) {
	parent := Value{Mode: ModeElementGroup, Groups: []ElementGroup{
		{Elements: []string{"e1", "removed"}},
	}}
	ctx := PrefillContext{
		Parent:            &parent,
		AllowedElementIDs: []string{"e1", "e2"},
	}

	result := Prefill(ModeElementGroup, CampaignConfig{}, ctx)
	assert.Equal(t, []ElementGroup{{Elements: []string{"e1"}}}, result.Value.Groups)

	fresh := Prefill(ModeElementGroup, CampaignConfig{}, PrefillContext{AllowedElementIDs: []string{"e1"}})
	assert.Empty(t, fresh.Value.Groups, "nothing to pre-fill without a parent")
}
