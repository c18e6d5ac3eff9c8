package store

import (
	"encoding/json"
	"time"
)

// SnapshotThreshold is the number of events after which a snapshot is taken.
const SnapshotThreshold = 10

// Snapshot is a point-in-time serialization of an aggregate's state.
// Replay resumes from the first event with a version above Version.
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int64           `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}
