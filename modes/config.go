package modes

// Mode identifies one of the six annotation campaign modes. The set is
// closed: every operation in this package dispatches over it explicitly.
type Mode string

const (
	ModeTranscription  Mode = "transcription"
	ModeClassification Mode = "classification"
	ModeEntity         Mode = "entity"
	ModeEntityForm     Mode = "entity form"
	ModeElementGroup   Mode = "element_group"
	ModeElements       Mode = "elements"
)

// AllModes lists every supported campaign mode.
var AllModes = []Mode{
	ModeTranscription,
	ModeClassification,
	ModeEntity,
	ModeEntityForm,
	ModeElementGroup,
	ModeElements,
}

func (m Mode) Valid() bool {
	for _, mode := range AllModes {
		if m == mode {
			return true
		}
	}
	return false
}

// RequiresImage reports whether tasks of this mode can only be created on
// elements carrying an image. Only element delineation needs one, every
// other mode can work from text or a carousel of children.
func (m Mode) RequiresImage() bool {
	return m == ModeElements
}

// FieldGroupMode marks an entity form field entry that groups sub-fields
// under a legend instead of being an input itself.
const FieldGroupMode = "group"

// EntityTypeConfig declares an allowed entity type with its display color.
type EntityTypeConfig struct {
	EntityType  string `json:"entity_type"`
	EntityColor string `json:"entity_color,omitempty"`
}

// FieldConfig describes one entity form input, or a group of them when
// Mode is FieldGroupMode.
type FieldConfig struct {
	// Group attributes
	Legend string        `json:"legend,omitempty"`
	Mode   string        `json:"mode,omitempty"`
	Fields []FieldConfig `json:"fields,omitempty"`

	// Input attributes
	EntityType          string   `json:"entity_type,omitempty"`
	Instruction         string   `json:"instruction,omitempty"`
	HelpText            string   `json:"help_text,omitempty"`
	ValidationRegex     string   `json:"validation_regex,omitempty"`
	PredefinedChoices   string   `json:"predefined_choices,omitempty"`
	FromAuthority       string   `json:"from_authority,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
}

// CampaignConfig is the typed form of a campaign's free-form configuration
// mapping. Each mode reads its own subset; unknown keys are dropped when
// the configuration is parsed.
type CampaignConfig struct {
	// Classification: allowed class ids. Empty means every project class.
	Classes []string `json:"classes,omitempty"`

	// Entity: allowed entity types.
	Types []EntityTypeConfig `json:"types,omitempty"`

	// EntityForm: configured fields and field groups.
	Fields []FieldConfig `json:"fields,omitempty"`

	// Elements: allowed element type ids. Empty means every non-folder
	// project type.
	ElementTypes []string `json:"element_types,omitempty"`

	// Transcription: element type ids whose children are transcribed.
	// Nil means the annotated element plus all its children.
	ChildrenTypes []string `json:"children_types,omitempty"`

	// ElementGroup: type of the elements displayed in the carousel; only
	// their direct children can be grouped.
	CarouselType string `json:"carousel_type,omitempty"`
	GroupType    string `json:"group_type,omitempty"`

	// Type of the ancestor used as display context for interactive images.
	ContextType string `json:"context_type,omitempty"`

	// Transcription: pre-filled values imported with a confidence below
	// this threshold are flagged for review on the initial form.
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`

	TranscriptionDisplay string `json:"transcription_display,omitempty"`
	DisplayGroupedInputs bool   `json:"display_grouped_inputs,omitempty"`
}

// FlatField is an entity form field together with the legend of the group
// it belongs to, empty for top-level fields.
type FlatField struct {
	Group string
	Field FieldConfig
}

// FlattenFields expands field groups so every configured input appears
// exactly once, in configuration order.
func (c CampaignConfig) FlattenFields() []FlatField {
	var flattened []FlatField
	for _, field := range c.Fields {
		if field.Mode == FieldGroupMode {
			for _, sub := range field.Fields {
				flattened = append(flattened, FlatField{Group: field.Legend, Field: sub})
			}
			continue
		}
		flattened = append(flattened, FlatField{Field: field})
	}
	return flattened
}

// EntityTypeNames returns the configured entity type identifiers.
func (c CampaignConfig) EntityTypeNames() []string {
	names := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		names = append(names, t.EntityType)
	}
	return names
}
