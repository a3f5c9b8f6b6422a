package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table. One row is
// written per archived planning decision.
type ProvenanceEntry struct {
	RequestID   string
	PlanID      string
	TriggerType string // "plan" | "feedback"
	SignalsJSON string
	Decision    string // "ready" | "fallback" | "error" | outcome label
	Reason      string
	CreatedAt   time.Time
}
// #endregion provenance-entry
