package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	return validationErr.Fields
}

func TestValidateTranscription(t *testing.T) {
	ctx := ValidationContext{ConfiguredElementIDs: []string{"e1", "e2"}}

	ok := Value{Mode: ModeTranscription, Transcription: map[string]TranscriptionEntry{
		"e1": {Text: "hello"},
		"e2": {Text: "", Uncertain: true},
	}}
	assert.NoError(t, Validate(CampaignConfig{}, ctx, ok))

	missing := Value{Mode: ModeTranscription, Transcription: map[string]TranscriptionEntry{
		"e1": {Text: "hello"},
	}}
	errs := fieldErrors(t, Validate(CampaignConfig{}, ctx, missing))
	assert.Contains(t, errs, "e2")

	stray := Value{Mode: ModeTranscription, Transcription: map[string]TranscriptionEntry{
		"e1": {}, "e2": {}, "e3": {Text: "not part of the task"},
	}}
	errs = fieldErrors(t, Validate(CampaignConfig{}, ctx, stray))
	assert.Contains(t, errs, "e3")
}

func TestValidateEntities(t *testing.T) {
	cfg := CampaignConfig{Types: []EntityTypeConfig{{EntityType: "name"}}}
	// 5 runes, more bytes
	ctx := ValidationContext{TranscriptionText: "héllo"}

	ok := Value{Mode: ModeEntity, Entities: []Entity{{EntityType: "name", Offset: 0, Length: 5}}}
	assert.NoError(t, Validate(cfg, ctx, ok))

	bad := Value{Mode: ModeEntity, Entities: []Entity{
		{EntityType: "date", Offset: 0, Length: 2},
		{EntityType: "name", Offset: 3, Length: 5},
		{EntityType: "name", Offset: 0, Length: 0},
	}}
	errs := fieldErrors(t, Validate(cfg, ctx, bad))
	assert.Contains(t, errs["entities.0"][0], "not declared")
	assert.Contains(t, errs["entities.1"][0], "not part of the transcription")
	assert.Contains(t, errs["entities.2"][0], "length must be at least 1")
}

func TestValidateEntityForm(t *testing.T) {
	cfg := CampaignConfig{Fields: []FieldConfig{
		{EntityType: "name", Instruction: "Last name", ValidationRegex: "[A-Z]+.*"},
		{EntityType: "status", Instruction: "Marital status", PredefinedChoices: "single, married"},
	}}

	submit := func(name, status string) Value {
		return Value{Mode: ModeEntityForm, Fields: []FieldValue{
			{EntityType: "name", Instruction: "Last name", Value: &name},
			{EntityType: "status", Instruction: "Marital status", Value: &status},
		}}
	}

	assert.NoError(t, Validate(cfg, ValidationContext{}, submit("Bob", "single")))

	errs := fieldErrors(t, Validate(cfg, ValidationContext{}, submit("bob", "divorced")))
	assert.Equal(t, []string{"Invalid format, please refer to the instructions."}, errs["name/Last name"])
	assert.Contains(t, errs["status/Marital status"][0], "not one of the predefined choices")

	// Empty fields never fail format checks
	empty := ""
	blank := Value{Mode: ModeEntityForm, Fields: []FieldValue{
		{EntityType: "name", Instruction: "Last name", Value: &empty},
		{EntityType: "status", Instruction: "Marital status", Value: nil},
	}}
	assert.NoError(t, Validate(cfg, ValidationContext{}, blank))

	// A missing field is an error even when empty would be accepted
	partial := Value{Mode: ModeEntityForm, Fields: []FieldValue{
		{EntityType: "name", Instruction: "Last name", Value: &empty},
	}}
	errs = fieldErrors(t, Validate(cfg, ValidationContext{}, partial))
	assert.Contains(t, errs, "status/Marital status")
}

func TestValidateEntityFormRegexGuard(t *testing.T) {
	cfg := CampaignConfig{Fields: []FieldConfig{
		{EntityType: "name", Instruction: "Last name", ValidationRegex: "[A-Z]+"},
	}}

	// Inputs beyond the guard length skip the regex entirely
	long := ""
	for i := 0; i < maxRegexInputLength+1; i++ {
		long += "a"
	}
	v := Value{Mode: ModeEntityForm, Fields: []FieldValue{
		{EntityType: "name", Instruction: "Last name", Value: &long},
	}}
	assert.NoError(t, Validate(cfg, ValidationContext{}, v))

	// The regex is anchored: a partial match is not enough
	partial := "aXa"
	v.Fields[0].Value = &partial
	assert.Error(t, Validate(cfg, ValidationContext{}, v))
}

func TestValidateEntityFormAuthority(t *testing.T) {
	cfg := CampaignConfig{Fields: []FieldConfig{
		{EntityType: "place", Instruction: "Birth place", FromAuthority: "auth-1"},
	}}
	ctx := ValidationContext{
		AuthorityHas: func(authorityID, value string) bool {
			return authorityID == "auth-1" && value == "Paris"
		},
	}

	paris := "Paris"
	ok := Value{Mode: ModeEntityForm, Fields: []FieldValue{
		{EntityType: "place", Instruction: "Birth place", Value: &paris},
	}}
	assert.NoError(t, Validate(cfg, ctx, ok))

	atlantis := "Atlantis"
	ok.Fields[0].Value = &atlantis
	errs := fieldErrors(t, Validate(cfg, ctx, ok))
	assert.Contains(t, errs["place/Birth place"][0], "allowed authority values")
}

func TestValidateClassification(t *testing.T) {
	ctx := ValidationContext{AllowedClasses: []string{"c1", "c2"}}

	assert.NoError(t, Validate(CampaignConfig{}, ctx, Value{Mode: ModeClassification, Classification: "c1"}))

	errs := fieldErrors(t, Validate(CampaignConfig{}, ctx, Value{Mode: ModeClassification, Classification: "c3"}))
	assert.Contains(t, errs, "classification")
}

func TestValidateElements(t *testing.T) {
	ctx := ValidationContext{AllowedElementTypes: []string{"line"}}

	ok := Value{Mode: ModeElements, Elements: []ElementAnnotation{
		{Polygon: Polygon{{0, 0}, {10, 0}, {10, 10}}, ElementType: "line"},
	}}
	assert.NoError(t, Validate(CampaignConfig{}, ctx, ok))

	bad := Value{Mode: ModeElements, Elements: []ElementAnnotation{
		{Polygon: Polygon{{0, 0}, {10, 0}}, ElementType: "line"},
		{Polygon: Polygon{{0, 0}, {10, 0}, {10, 10}}, ElementType: "page"},
	}}
	errs := fieldErrors(t, Validate(CampaignConfig{}, ctx, bad))
	assert.Contains(t, errs, "elements.0")
	assert.Contains(t, errs["elements.1"][0], "not allowed")
}

func TestValidateGroups(t *testing.T) {
	ctx := ValidationContext{AllowedElementIDs: []string{"e1", "e2"}}

	ok := Value{Mode: ModeElementGroup, Groups: []ElementGroup{{Elements: []string{"e1", "gone"}}}}
	assert.NoError(t, Validate(CampaignConfig{}, ctx, ok))

	empty := Value{Mode: ModeElementGroup, Groups: []ElementGroup{{Elements: []string{"gone"}}}}
	errs := fieldErrors(t, Validate(CampaignConfig{}, ctx, empty))
	assert.Contains(t, errs["groups.0"][0], "at least one element")
}

func TestNormalize(t *testing.T) {
	elements := Value{Mode: ModeElements, Elements: []ElementAnnotation{
		{Polygon: Polygon{{10, 10}, {0, 0}, {0, 0}, {10, 0}}, ElementType: "line"},
	}}
	normalized := Normalize(ValidationContext{}, elements)
	assert.Equal(t, Polygon{{0, 0}, {10, 0}, {10, 10}}, normalized.Elements[0].Polygon)

	groups := Value{Mode: ModeElementGroup, Groups: []ElementGroup{
		{Elements: []string{"e2", "gone", "e1"}},
	}}
	normalized = Normalize(ValidationContext{AllowedElementIDs: []string{"e1", "e2"}}, groups)
	assert.Equal(t, []string{"e2", "e1"}, normalized.Groups[0].Elements, "submitted order is preserved")
}
