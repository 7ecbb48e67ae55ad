package modes

import (
	"encoding/json"
	"fmt"
)

// Answer is one display line of a historical annotation.
type Answer struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	Group     string `json:"group,omitempty"`
	Uncertain bool   `json:"uncertain,omitempty"`
}

// DisplayContext resolves ids to human readable names when formatting a
// historical annotation. Lookups return false for ids that no longer
// exist, which happens when the configuration or the element tree drifted
// since the annotation was written.
type DisplayContext struct {
	ElementName func(elementID string) (string, bool)
	ClassName   func(classID string) (string, bool)

	// The annotated element plus its configured children, in tree order.
	ConfiguredElementIDs []string
}

// FormatAnnotation renders a stored annotation value for display. Entries
// that no longer match the current campaign configuration are still shown,
// appended after the configured ones with a generic label.
func FormatAnnotation(mode Mode, cfg CampaignConfig, ctx DisplayContext, value map[string]interface{}) []Answer {
	parsed, err := FromMap(mode, value)
	if err != nil {
		return nil
	}

	switch mode {
	case ModeTranscription:
		return formatTranscription(ctx, parsed)
	case ModeEntityForm:
		return formatEntityForm(cfg, parsed)
	case ModeClassification:
		return formatClassification(ctx, parsed)
	case ModeEntity:
		raw, _ := json.Marshal(parsed.Entities)
		return []Answer{{Value: string(raw)}}
	case ModeElements:
		raw, _ := json.Marshal(parsed.Elements)
		return []Answer{{Value: string(raw)}}
	case ModeElementGroup:
		raw, _ := json.Marshal(parsed.Groups)
		return []Answer{{Value: string(raw)}}
	}
	return nil
}

func transcriptionLabel(ctx DisplayContext, elementID string) string {
	if ctx.ElementName != nil {
		if name, ok := ctx.ElementName(elementID); ok {
			return fmt.Sprintf("Annotation on element %q", name)
		}
	}
	return "Annotation"
}

func formatTranscription(ctx DisplayContext, v Value) []Answer {
	answers := make([]Answer, 0, len(v.Transcription))
	seen := map[string]bool{}

	// Configured elements first, to keep the display order of the form.
	for _, elementID := range ctx.ConfiguredElementIDs {
		entry, ok := v.Transcription[elementID]
		if !ok {
			continue
		}
		seen[elementID] = true
		answers = append(answers, Answer{
			Label:     transcriptionLabel(ctx, elementID),
			Value:     entry.Text,
			Uncertain: entry.Uncertain,
		})
	}

	// The annotated elements may differ if the configuration has changed.
	for elementID, entry := range v.Transcription {
		if seen[elementID] {
			continue
		}
		answers = append(answers, Answer{
			Label:     transcriptionLabel(ctx, elementID),
			Value:     entry.Text,
			Uncertain: entry.Uncertain,
		})
	}

	return answers
}

func formatEntityForm(cfg CampaignConfig, v Value) []Answer {
	remaining := make([]FieldValue, len(v.Fields))
	copy(remaining, v.Fields)

	type sortedValue struct {
		group string
		value FieldValue
	}
	var sorted []sortedValue

	for _, flat := range cfg.FlattenFields() {
		for i, value := range remaining {
			if value.EntityType == flat.Field.EntityType && value.Instruction == flat.Field.Instruction {
				sorted = append(sorted, sortedValue{group: flat.Group, value: value})
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}

	// Some values might not be associated to configured fields anymore,
	// so we add them all at the end of the list.
	for _, value := range remaining {
		sorted = append(sorted, sortedValue{value: value})
	}

	answers := make([]Answer, 0, len(sorted))
	for _, entry := range sorted {
		var text string
		if entry.value.Value != nil {
			text = *entry.value.Value
		}
		answers = append(answers, Answer{
			Label:     entry.value.Instruction,
			Value:     text,
			Group:     entry.group,
			Uncertain: entry.value.Uncertain,
		})
	}
	return answers
}

func formatClassification(ctx DisplayContext, v Value) []Answer {
	if ctx.ClassName != nil {
		if name, ok := ctx.ClassName(v.Classification); ok {
			return []Answer{{Label: "Class", Value: name}}
		}
	}
	// The class may have been deleted since the annotation was written;
	// the answer still shows, under its raw id.
	return []Answer{{Label: "Class", Value: v.Classification}}
}
