package models

// CorrelationRequest is the input of a correlation run.
type CorrelationRequest struct {
	Notices   []Record
	Artifacts []Record
	// Strategy and MinConfidence override the configured defaults when non-nil.
	Strategy      *Strategy
	MinConfidence *float64
}
