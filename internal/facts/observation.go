package facts

import "time"

// ValueType tags the variant carried by an observation value.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueNumber ValueType = "number"
	ValueDate   ValueType = "date"
	ValueList   ValueType = "list"
)

// ExtractionMethod records how an observation entered the system.
type ExtractionMethod string

const (
	MethodModelExtracted     ExtractionMethod = "model_extracted"
	MethodManual             ExtractionMethod = "manually_entered"
	MethodProfileImport      ExtractionMethod = "imported_from_profile"
	MethodFormSubmitted      ExtractionMethod = "form_submitted"
	MethodExternalEnrichment ExtractionMethod = "externally_enriched"
	MethodSystemGenerated    ExtractionMethod = "system_generated"
)

// Value is a tagged variant over the four observation value types.
// Exactly one of the payload fields is meaningful for a given Type.
type Value struct {
	Type   ValueType  `json:"type"`
	String string     `json:"string,omitempty"`
	Number float64    `json:"number,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
	List   []string   `json:"list,omitempty"`
}

// Observation is one atomic extracted fact about a candidate.
// Observations are never mutated: a newer fact for the same field
// supersedes the old one, which keeps its row with current=false.
type Observation struct {
	ID          string           `json:"id"`
	CandidateID string           `json:"candidate_id"`
	Field       string           `json:"field"`
	Value       Value            `json:"value"`
	Confidence  float64          `json:"confidence"`
	Method      ExtractionMethod `json:"method"`
	SourceDocID *string          `json:"source_doc_id,omitempty"`
	ExtractedAt time.Time        `json:"extracted_at"`
	Current     bool             `json:"current"`
}

func StringValue(s string) Value  { return Value{Type: ValueString, String: s} }
func NumberValue(n float64) Value { return Value{Type: ValueNumber, Number: n} }
func ListValue(l []string) Value  { return Value{Type: ValueList, List: l} }

func DateValue(t time.Time) Value {
	return Value{Type: ValueDate, Date: &t}
}
