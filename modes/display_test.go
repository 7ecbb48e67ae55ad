package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTranscription(t *testing.T) {
	ctx := DisplayContext{
		ConfiguredElementIDs: []string{"e1", "e2"},
		ElementName: func(elementID string) (string, bool) {
			if elementID == "e1" {
				return "line 1", true
			}
			return "", false
		},
	}
	value := map[string]interface{}{
		"transcription": map[string]interface{}{
			"e1":   map[string]interface{}{"text": "first", "uncertain": true},
			"gone": map[string]interface{}{"text": "orphaned"},
		},
	}

	answers := FormatAnnotation(ModeTranscription, CampaignConfig{}, ctx, value)
	assert.Equal(t, []Answer{
		{Label: `Annotation on element "line 1"`, Value: "first", Uncertain: true},
		{Label: "Annotation", Value: "orphaned"},
	}, answers, "configured elements first, drifted entries last with a generic label")
}

func TestFormatEntityForm(t *testing.T) {
	cfg := CampaignConfig{Fields: []FieldConfig{
		{Legend: "Identity", Mode: FieldGroupMode, Fields: []FieldConfig{
			{EntityType: "name", Instruction: "Last name"},
		}},
	}}
	value := map[string]interface{}{
		"values": []interface{}{
			map[string]interface{}{"entity_type": "old", "instruction": "Removed field", "value": "kept"},
			map[string]interface{}{"entity_type": "name", "instruction": "Last name", "value": "Durand"},
		},
	}

	answers := FormatAnnotation(ModeEntityForm, cfg, DisplayContext{}, value)
	assert.Equal(t, []Answer{
		{Label: "Last name", Value: "Durand", Group: "Identity"},
		{Label: "Removed field", Value: "kept"},
	}, answers)
}

func TestFormatClassification(t *testing.T) {
	ctx := DisplayContext{
		ClassName: func(classID string) (string, bool) {
			if classID == "c1" {
				return "marriage record", true
			}
			return "", false
		},
	}

	answers := FormatAnnotation(ModeClassification, CampaignConfig{}, ctx, map[string]interface{}{"classification": "c1"})
	assert.Equal(t, []Answer{{Label: "Class", Value: "marriage record"}}, answers)

	// A deleted class still shows, under its raw id.
	answers = FormatAnnotation(ModeClassification, CampaignConfig{}, ctx, map[string]interface{}{"classification": "deleted"})
	assert.Equal(t, []Answer{{Label: "Class", Value: "deleted"}}, answers)
}
