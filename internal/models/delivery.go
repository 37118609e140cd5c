package models

import "time"

// DeliveredPaper pairs a processed entry with its position in a run.
type DeliveredPaper struct {
	Entry  ProcessedEntry
	Cached bool // true when the summary came from the dedup store
}

// DeliveryResult is the ephemeral aggregate built by one orchestrator run.
// It is consumed by the dispatch step and then discarded; durability lives
// in the dedup store, not here.
type DeliveryResult struct {
	RunID        string
	Category     string
	Topic        string
	SendAll      bool
	Papers       []DeliveredPaper
	NewCount     int
	CachedCount  int
	SkippedCount int // per-paper extract/summarize failures absorbed by the run
	StartedAt    time.Time
	FinishedAt   time.Time

	// Dispatch outcome; one failure does not block other recipients.
	PushSent     int
	PushFailed   int
	EmailsSent   int
	EmailsFailed int
}
