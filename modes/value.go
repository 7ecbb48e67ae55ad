package modes

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// TranscriptionEntry is the transcribed text for one element.
type TranscriptionEntry struct {
	Text      string `json:"text"`
	Uncertain bool   `json:"uncertain"`
}

// Entity locates a typed entity inside an element's transcription.
type Entity struct {
	EntityType string `json:"entity_type"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
}

// FieldValue is one filled entity form input. Value is nil when the field
// was left empty.
type FieldValue struct {
	EntityType  string  `json:"entity_type"`
	Instruction string  `json:"instruction"`
	Value       *string `json:"value"`
	Uncertain   bool    `json:"uncertain"`
}

// ElementAnnotation is one delineated element.
type ElementAnnotation struct {
	Polygon     Polygon `json:"polygon"`
	ElementType string  `json:"element_type"`
}

// ElementGroup is an ordered group of element ids.
type ElementGroup struct {
	Elements []string `json:"elements"`
}

// Value is the tagged union over the six annotation payload shapes. Only
// the member matching Mode is ever populated.
type Value struct {
	Mode Mode `json:"-"`

	Transcription  map[string]TranscriptionEntry `json:"transcription,omitempty"`
	Entities       []Entity                      `json:"entities,omitempty"`
	Fields         []FieldValue                  `json:"values,omitempty"`
	Classification string                        `json:"classification,omitempty"`
	Elements       []ElementAnnotation           `json:"elements,omitempty"`
	Groups         []ElementGroup                `json:"groups,omitempty"`
}

type transcriptionPayload struct {
	Transcription map[string]TranscriptionEntry `json:"transcription"`
}

type entityPayload struct {
	Entities []Entity `json:"entities"`
}

type entityFormPayload struct {
	Values []FieldValue `json:"values"`
}

type classificationPayload struct {
	Classification string `json:"classification"`
}

type elementsPayload struct {
	Elements []ElementAnnotation `json:"elements"`
}

type groupsPayload struct {
	Groups []ElementGroup `json:"groups"`
}

// ParseValue decodes a raw annotation payload into the shape of the given
// mode. Payloads missing the mode's top-level key are rejected.
func ParseValue(mode Mode, raw json.RawMessage) (Value, error) {
	v := Value{Mode: mode}

	switch mode {
	case ModeTranscription:
		var payload transcriptionPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid transcription payload: %w", err)
		}
		if payload.Transcription == nil {
			return v, fmt.Errorf("transcription payload requires a %q mapping", "transcription")
		}
		v.Transcription = payload.Transcription
	case ModeEntity:
		var payload entityPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid entity payload: %w", err)
		}
		v.Entities = payload.Entities
	case ModeEntityForm:
		var payload entityFormPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid entity form payload: %w", err)
		}
		v.Fields = payload.Values
	case ModeClassification:
		var payload classificationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid classification payload: %w", err)
		}
		if payload.Classification == "" {
			return v, fmt.Errorf("classification payload requires a %q value", "classification")
		}
		v.Classification = payload.Classification
	case ModeElements:
		var payload elementsPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid elements payload: %w", err)
		}
		v.Elements = payload.Elements
	case ModeElementGroup:
		var payload groupsPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return v, fmt.Errorf("invalid element group payload: %w", err)
		}
		v.Groups = payload.Groups
	default:
		return v, fmt.Errorf("unsupported campaign mode %q", mode)
	}

	return v, nil
}

// FromMap rebuilds a typed Value from a stored annotation value. Entries
// that do not match the mode's shape surface as a parse error.
func FromMap(mode Mode, value map[string]interface{}) (Value, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Value{Mode: mode}, err
	}
	return ParseValue(mode, raw)
}

// ToMap converts the value to the generic mapping stored on annotations.
func (v Value) ToMap() map[string]interface{} {
	var payload interface{}
	switch v.Mode {
	case ModeTranscription:
		transcription := v.Transcription
		if transcription == nil {
			transcription = map[string]TranscriptionEntry{}
		}
		payload = transcriptionPayload{Transcription: transcription}
	case ModeEntity:
		payload = entityPayload{Entities: emptyIfNil(v.Entities)}
	case ModeEntityForm:
		payload = entityFormPayload{Values: emptyIfNil(v.Fields)}
	case ModeClassification:
		payload = classificationPayload{Classification: v.Classification}
	case ModeElements:
		payload = elementsPayload{Elements: emptyIfNil(v.Elements)}
	case ModeElementGroup:
		payload = groupsPayload{Groups: emptyIfNil(v.Groups)}
	default:
		return map[string]interface{}{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Equal reports whether two values carry the same annotation payload.
// Moderation relies on this to avoid creating a new version when the
// moderator validated without correcting anything.
func (v Value) Equal(other Value) bool {
	return v.Mode == other.Mode && reflect.DeepEqual(v.ToMap(), other.ToMap())
}

// HasUncertainValue inspects a stored annotation value for uncertain
// entries. It works on the raw mapping so that historical annotations with
// drifted shapes never break the computation, mirroring the tolerance of
// the write path. Only transcription and entity form values can be
// uncertain; every other mode always reports false.
func HasUncertainValue(mode Mode, value map[string]interface{}) bool {
	switch mode {
	case ModeTranscription:
		transcription, ok := value["transcription"].(map[string]interface{})
		if !ok {
			return false
		}
		for _, raw := range transcription {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if uncertain, ok := entry["uncertain"].(bool); ok && uncertain {
				return true
			}
		}
	case ModeEntityForm:
		values, ok := value["values"].([]interface{})
		if !ok {
			return false
		}
		for _, raw := range values {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if uncertain, ok := entry["uncertain"].(bool); ok && uncertain {
				return true
			}
		}
	}
	return false
}
