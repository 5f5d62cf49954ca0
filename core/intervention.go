package core

// InterventionStatus mirrors spec §3 HumanIntervention.status.
type InterventionStatus string

const (
	InterventionPending  InterventionStatus = "pending"
	InterventionResolved InterventionStatus = "resolved"
)

// InterventionPriority is the queueing priority assigned at creation.
type InterventionPriority string

const (
	PriorityLow    InterventionPriority = "low"
	PriorityMedium InterventionPriority = "medium"
	PriorityHigh   InterventionPriority = "high"
)

// HumanIntervention is a pending manual action (spec §3).
type HumanIntervention struct {
	InterventionID string               `json:"intervention_id"`
	SheetID        string               `json:"sheet_id"`
	Type           string               `json:"intervention_type"`
	PipelineStage  string               `json:"pipeline_stage"`
	Reason         string               `json:"reason"`
	Priority       InterventionPriority `json:"priority"`
	Status         InterventionStatus   `json:"status"`
	Resolution     string               `json:"resolution,omitempty"`
}

// newIntervention builds a pending HumanIntervention ready for persistence.
func newIntervention(sheetID, kind, stage, reason string, priority InterventionPriority) HumanIntervention {
	return HumanIntervention{
		InterventionID: newID(),
		SheetID:        sheetID,
		Type:           kind,
		PipelineStage:  stage,
		Reason:         reason,
		Priority:       priority,
		Status:         InterventionPending,
	}
}
