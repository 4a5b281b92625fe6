package ai

// Advice is the structured output from the advisor model.
type Advice struct {
	// Recommendation names the single ride the driver should look at first.
	Recommendation string `json:"recommendation"`

	// Rationale is a one- or two-sentence explanation in plain language.
	Rationale string `json:"rationale"`

	// CautionNote flags anything the driver should double-check (long trip,
	// short notice, estimated rather than measured distance). Empty when
	// there is nothing to flag.
	CautionNote string `json:"caution_note,omitempty"`
}
