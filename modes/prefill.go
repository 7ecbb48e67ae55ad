package modes

import (
	"strings"
)

// ImportedTranscription is a transcription fetched from the content
// provider for one element.
type ImportedTranscription struct {
	Text       string
	Confidence *float64
}

// ImportedEntity is an entity fetched from the content provider.
type ImportedEntity struct {
	Type       string
	Name       string
	Offset     int
	Length     int
	Confidence *float64
}

// ChildElement is a provider-imported child of the annotated element.
type ChildElement struct {
	ID      string
	Polygon Polygon
	TypeID  string
}

// PrefillContext gathers everything a form pre-fill can draw from: the
// parent annotation when the user resumes an existing chain, otherwise the
// data imported from the provider.
type PrefillContext struct {
	Parent *Value

	// Imported transcription of the annotated element itself, used by the
	// entity mode to bound pre-filled offsets.
	TranscriptionText string

	ImportedTranscriptions map[string]ImportedTranscription
	ImportedEntities       []ImportedEntity
	ChildElements          []ChildElement

	ConfiguredElementIDs []string
	AllowedElementTypes  []string
	AllowedElementIDs    []string
}

// PrefillResult carries the pre-filled value plus the keys of the entries
// whose imported confidence fell below the configured threshold. Those are
// flagged for review on the initial form only; they never block a
// resubmission.
type PrefillResult struct {
	Value         Value
	LowConfidence map[string]bool
}

// Prefill builds the initial form value for a fresh or resumed annotation
// attempt. Pre-fill candidates that are no longer valid under the current
// configuration are silently dropped.
func Prefill(mode Mode, cfg CampaignConfig, ctx PrefillContext) PrefillResult {
	result := PrefillResult{
		Value:         Value{Mode: mode},
		LowConfidence: map[string]bool{},
	}

	switch mode {
	case ModeTranscription:
		prefillTranscription(cfg, ctx, &result)
	case ModeEntity:
		prefillEntities(cfg, ctx, &result)
	case ModeEntityForm:
		prefillEntityForm(cfg, ctx, &result)
	case ModeClassification:
		// A classification is a single choice, there is nothing to pre-fill.
	case ModeElements:
		prefillElements(ctx, &result)
	case ModeElementGroup:
		prefillGroups(ctx, &result)
	}

	return result
}

func prefillTranscription(cfg CampaignConfig, ctx PrefillContext, result *PrefillResult) {
	entries := make(map[string]TranscriptionEntry, len(ctx.ConfiguredElementIDs))

	for _, elementID := range ctx.ConfiguredElementIDs {
		if ctx.Parent != nil {
			if previous, ok := ctx.Parent.Transcription[elementID]; ok {
				entries[elementID] = previous
			} else {
				entries[elementID] = TranscriptionEntry{}
			}
			continue
		}

		entry := TranscriptionEntry{}
		if imported, ok := ctx.ImportedTranscriptions[elementID]; ok {
			entry.Text = imported.Text
			if cfg.ConfidenceThreshold != nil && imported.Confidence != nil &&
				*imported.Confidence < *cfg.ConfidenceThreshold {
				result.LowConfidence[elementID] = true
			}
		}
		entries[elementID] = entry
	}

	result.Value.Transcription = entries
}

func prefillEntities(cfg CampaignConfig, ctx PrefillContext, result *PrefillResult) {
	var candidates []Entity
	if ctx.Parent != nil {
		candidates = ctx.Parent.Entities
	} else {
		for _, imported := range ctx.ImportedEntities {
			candidates = append(candidates, Entity{
				EntityType: imported.Type,
				Offset:     imported.Offset,
				Length:     imported.Length,
			})
		}
	}

	declaredTypes := cfg.EntityTypeNames()
	transcriptionLength := len([]rune(ctx.TranscriptionText))

	entities := make([]Entity, 0, len(candidates))
	for _, entity := range candidates {
		if !contains(declaredTypes, entity.EntityType) {
			continue
		}
		if transcriptionLength == 0 || entity.Offset+entity.Length > transcriptionLength {
			continue
		}
		entities = append(entities, entity)
	}
	result.Value.Entities = entities
}

func prefillEntityForm(cfg CampaignConfig, ctx PrefillContext, result *PrefillResult) {
	flattened := cfg.FlattenFields()
	values := make([]FieldValue, 0, len(flattened))

	for _, flat := range flattened {
		field := flat.Field
		value := FieldValue{EntityType: field.EntityType, Instruction: field.Instruction}

		if ctx.Parent != nil {
			if previous, ok := findFieldValue(ctx.Parent.Fields, field.EntityType, field.Instruction); ok {
				value.Value = previous.Value
				value.Uncertain = previous.Uncertain
			}
			values = append(values, value)
			continue
		}

		// Join the imported entities of the field's type into a single
		// suggestion, averaging their confidence for the review flag.
		var names []string
		var confidenceSum float64
		var confidenceCount int
		for _, imported := range ctx.ImportedEntities {
			if imported.Type != field.EntityType {
				continue
			}
			names = append(names, imported.Name)
			if imported.Confidence != nil {
				confidenceSum += *imported.Confidence
				confidenceCount++
			}
		}
		if len(names) > 0 {
			joined := strings.Join(names, " ")
			value.Value = &joined
			if field.ConfidenceThreshold != nil && confidenceCount > 0 &&
				confidenceSum/float64(confidenceCount) < *field.ConfidenceThreshold {
				result.LowConfidence[fieldKey(field)] = true
			}
		}
		values = append(values, value)
	}

	result.Value.Fields = values
}

func prefillElements(ctx PrefillContext, result *PrefillResult) {
	var elements []ElementAnnotation
	if ctx.Parent != nil {
		for _, element := range ctx.Parent.Elements {
			if contains(ctx.AllowedElementTypes, element.ElementType) {
				elements = append(elements, element)
			}
		}
	} else {
		for _, child := range ctx.ChildElements {
			if !contains(ctx.AllowedElementTypes, child.TypeID) {
				continue
			}
			elements = append(elements, ElementAnnotation{Polygon: child.Polygon, ElementType: child.TypeID})
		}
	}
	result.Value.Elements = elements
}

func prefillGroups(ctx PrefillContext, result *PrefillResult) {
	if ctx.Parent == nil {
		return
	}
	groups := make([]ElementGroup, 0, len(ctx.Parent.Groups))
	for _, group := range ctx.Parent.Groups {
		kept := make([]string, 0, len(group.Elements))
		for _, elementID := range group.Elements {
			if contains(ctx.AllowedElementIDs, elementID) {
				kept = append(kept, elementID)
			}
		}
		groups = append(groups, ElementGroup{Elements: kept})
	}
	result.Value.Groups = groups
}
