package modes

import (
	"fmt"
	"regexp"
	"strings"
)

// Inputs longer than this are never matched against the configured
// validation regex, as a cheap guard against catastrophic backtracking.
const maxRegexInputLength = 100

// FieldErrors collects validation messages per field key. The empty key
// holds errors that concern the whole submission.
type FieldErrors map[string][]string

func (e FieldErrors) add(field, message string) {
	e[field] = append(e[field], message)
}

// ValidationError is returned when a submitted annotation value does not
// satisfy the campaign configuration. Nothing is persisted when it is
// raised.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, messages := range e.Fields {
		for _, message := range messages {
			if field == "" {
				parts = append(parts, message)
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", field, message))
		}
	}
	return strings.Join(parts, ", ")
}

// ValidationContext carries the database-derived facts a validation needs,
// so this package stays free of persistence concerns.
type ValidationContext struct {
	// Imported transcription of the annotated element, empty when absent.
	TranscriptionText string

	// Allowed class ids for classification campaigns.
	AllowedClasses []string

	// Allowed element type ids for element delineation campaigns.
	AllowedElementTypes []string

	// Ids of the elements that may be grouped on element group campaigns.
	AllowedElementIDs []string

	// The annotated element plus its configured children, in tree order.
	ConfiguredElementIDs []string

	// AuthorityHas reports whether the given value belongs to the
	// authority. Nil disables authority checks.
	AuthorityHas func(authorityID, value string) bool
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Validate checks a parsed value against the campaign configuration and
// context, and returns a ValidationError listing every offending field.
func Validate(cfg CampaignConfig, ctx ValidationContext, v Value) error {
	errs := FieldErrors{}

	switch v.Mode {
	case ModeTranscription:
		validateTranscription(ctx, v, errs)
	case ModeEntity:
		validateEntities(cfg, ctx, v, errs)
	case ModeEntityForm:
		validateEntityForm(cfg, ctx, v, errs)
	case ModeClassification:
		if !contains(ctx.AllowedClasses, v.Classification) {
			errs.add("classification", fmt.Sprintf("%s is not one of the allowed classes", v.Classification))
		}
	case ModeElements:
		validateElements(cfg, ctx, v, errs)
	case ModeElementGroup:
		validateGroups(ctx, v, errs)
	default:
		errs.add("", fmt.Sprintf("unsupported campaign mode %q", v.Mode))
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validateTranscription(ctx ValidationContext, v Value, errs FieldErrors) {
	// One entry per relevant element, nothing more.
	for _, elementID := range ctx.ConfiguredElementIDs {
		if _, ok := v.Transcription[elementID]; !ok {
			errs.add(elementID, "missing transcription entry for this element")
		}
	}
	for elementID := range v.Transcription {
		if !contains(ctx.ConfiguredElementIDs, elementID) {
			errs.add(elementID, "element is not part of this task")
		}
	}
}

func validateEntities(cfg CampaignConfig, ctx ValidationContext, v Value, errs FieldErrors) {
	declaredTypes := cfg.EntityTypeNames()
	textLength := len([]rune(ctx.TranscriptionText))

	for i, entity := range v.Entities {
		key := fmt.Sprintf("entities.%d", i)
		if !contains(declaredTypes, entity.EntityType) {
			errs.add(key, fmt.Sprintf("entity type %s is not declared on this campaign", entity.EntityType))
		}
		if entity.Offset < 0 {
			errs.add(key, "offset must be positive")
		}
		if entity.Length < 1 {
			errs.add(key, "length must be at least 1")
		}
		if textLength == 0 || entity.Offset+entity.Length > textLength {
			errs.add(key, "the entity is not part of the transcription")
		}
	}
}

func validateEntityForm(cfg CampaignConfig, ctx ValidationContext, v Value, errs FieldErrors) {
	for _, flat := range cfg.FlattenFields() {
		field := flat.Field
		key := fieldKey(field)

		submitted, ok := findFieldValue(v.Fields, field.EntityType, field.Instruction)
		if !ok {
			errs.add(key, "missing value for this field")
			continue
		}
		if submitted.Value == nil || *submitted.Value == "" {
			continue
		}
		value := *submitted.Value

		if field.FromAuthority != "" && ctx.AuthorityHas != nil && !ctx.AuthorityHas(field.FromAuthority, value) {
			errs.add(key, fmt.Sprintf("%s is not one of the allowed authority values", value))
			continue
		}

		if field.PredefinedChoices != "" && !contains(splitChoices(field.PredefinedChoices), value) {
			errs.add(key, fmt.Sprintf("%s is not one of the predefined choices", value))
			continue
		}

		if field.ValidationRegex != "" && len(value) <= maxRegexInputLength {
			regex, err := regexp.Compile(anchored(field.ValidationRegex))
			if err != nil {
				errs.add(key, "the configured validation regex is invalid")
				continue
			}
			if !regex.MatchString(value) {
				errs.add(key, "Invalid format, please refer to the instructions.")
			}
		}
	}
}

func validateElements(cfg CampaignConfig, ctx ValidationContext, v Value, errs FieldErrors) {
	for i, element := range v.Elements {
		key := fmt.Sprintf("elements.%d", i)
		if _, err := element.Polygon.Canonical(); err != nil {
			errs.add(key, err.Error())
		}
		if !contains(ctx.AllowedElementTypes, element.ElementType) {
			errs.add(key, fmt.Sprintf("element type %s is not allowed on this campaign", element.ElementType))
		}
	}
}

func validateGroups(ctx ValidationContext, v Value, errs FieldErrors) {
	for i, group := range v.Groups {
		remaining := 0
		for _, elementID := range group.Elements {
			if contains(ctx.AllowedElementIDs, elementID) {
				remaining++
			}
		}
		if remaining == 0 {
			errs.add(fmt.Sprintf("groups.%d", i), "a group requires at least one element from the carousel")
		}
	}
}

// Normalize rewrites a validated value into its canonical stored form:
// polygons are canonicalized and group members outside the allowed set
// are dropped while preserving the submitted order.
func Normalize(ctx ValidationContext, v Value) Value {
	switch v.Mode {
	case ModeElements:
		normalized := make([]ElementAnnotation, 0, len(v.Elements))
		for _, element := range v.Elements {
			canonical, err := element.Polygon.Canonical()
			if err != nil {
				// Validate rejects these before Normalize runs.
				continue
			}
			normalized = append(normalized, ElementAnnotation{Polygon: canonical, ElementType: element.ElementType})
		}
		v.Elements = normalized
	case ModeElementGroup:
		normalized := make([]ElementGroup, 0, len(v.Groups))
		for _, group := range v.Groups {
			kept := make([]string, 0, len(group.Elements))
			for _, elementID := range group.Elements {
				if contains(ctx.AllowedElementIDs, elementID) {
					kept = append(kept, elementID)
				}
			}
			normalized = append(normalized, ElementGroup{Elements: kept})
		}
		v.Groups = normalized
	}
	return v
}

func fieldKey(field FieldConfig) string {
	return fmt.Sprintf("%s/%s", field.EntityType, field.Instruction)
}

func findFieldValue(values []FieldValue, entityType, instruction string) (FieldValue, bool) {
	for _, value := range values {
		if value.EntityType == entityType && value.Instruction == instruction {
			return value, true
		}
	}
	return FieldValue{}, false
}

func splitChoices(raw string) []string {
	parts := strings.Split(raw, ",")
	choices := make([]string, 0, len(parts))
	for _, part := range parts {
		choices = append(choices, strings.TrimSpace(part))
	}
	return choices
}

// anchored wraps a configured regex so it must match the whole input,
// matching the semantics of a full-match validation.
func anchored(expr string) string {
	return "^(?:" + expr + ")$"
}
