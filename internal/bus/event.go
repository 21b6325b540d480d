package bus

import "time"

// Event kinds. Subscribers filter on the namespace before the dot.
const (
	KindStageChanged  = "pipeline.stage_changed"
	KindDegraded      = "pipeline.degraded"
	KindArtifact      = "pipeline.artifact"
	KindIngestBatch   = "ingest.batch"
	KindIngestDone    = "ingest.complete"
	KindEvidence      = "evidence.recorded"
	KindEvidenceCheck = "evidence.verified"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
