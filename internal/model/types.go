package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one evolutionary run. It is saved when the run starts
// and updated when it finishes.
type RunRecord struct {
	VersionedRecord
	ID              string          `json:"id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at,omitzero"`
	Seed            uint32          `json:"seed"`
	Problem         string          `json:"problem"`
	Dataset         string          `json:"dataset,omitempty"`
	State           string          `json:"state"`
	Generations     int             `json:"generations"`
	Evaluations     int             `json:"evaluations"`
	BestFitness     float64         `json:"best_fitness"`
	BestTree        string          `json:"best_tree,omitempty"`
	BestLength      int             `json:"best_length,omitempty"`
	BestDepth       int             `json:"best_depth,omitempty"`
	BestFingerprint string          `json:"best_fingerprint,omitempty"`
	Config          json.RawMessage `json:"config,omitempty"`
}

// GenerationSnapshot is the per-generation progress persisted while a run is
// in flight.
type GenerationSnapshot struct {
	VersionedRecord
	RunID       string  `json:"run_id"`
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	BestSoFar   float64 `json:"best_so_far"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	MeanLength  float64 `json:"mean_length"`
	Diversity   int     `json:"diversity"`
	Evaluations int     `json:"evaluations"`
	BestTree    string  `json:"best_tree"`
}
