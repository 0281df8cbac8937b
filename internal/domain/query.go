package domain

// Version identifies the running engine release. Queries carry the version
// that produced them; a mismatch is worth a warning but never changes
// behavior.
const Version = "0.3.0"

// Query is a validated request to run a set of data interfaces together.
// A Query is created from external input, checked against a Registry, and
// never mutated afterwards. It is owned by the caller for the duration of
// one fulfillment call.
type Query struct {
	// Type names the data category every selected interface is expected
	// to share, e.g. "transcripts".
	Type string `yaml:"type" json:"type" validate:"required"`

	// Interfaces lists the interface names to run, in the order the caller
	// wants results reassembled. Order matters: failure reporting and the
	// reconciliation fold both follow it.
	Interfaces []string `yaml:"interfaces" json:"interfaces" validate:"required,min=1,dive,required"`

	// ProducedBy records the engine version that generated the query.
	// Compared against Version purely for a compatibility warning.
	ProducedBy string `yaml:"produced_by" json:"produced_by"`
}

// InterfaceDescriptor is the static identity a data interface declares
// before registration: a unique name, a type category, and an optional
// column contract mapping column names to human descriptions.
type InterfaceDescriptor struct {
	Name    string
	Type    string
	Columns map[string]string
}
