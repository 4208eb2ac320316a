package run

import (
	"time"

	"pahscreen/domain/core"
)

// Manifest is the audit record for one full pipeline run.
// Written once the run completes; two runs over unchanged inputs and the
// same config fingerprint must differ only in RunID and timestamps.
type Manifest struct {
	RunID             core.RunID     `json:"run_id"`
	ConfigFingerprint core.Hash      `json:"config_fingerprint"`
	CodeVersion       string         `json:"code_version,omitempty"`
	Stages            []string       `json:"stages"`
	StageRowCounts    map[string]int `json:"stage_row_counts"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
}

// NewManifest creates a manifest for a starting run
func NewManifest(fingerprint core.Hash, codeVersion string) *Manifest {
	return &Manifest{
		RunID:             core.RunID(core.NewID()),
		ConfigFingerprint: fingerprint,
		CodeVersion:       codeVersion,
		Stages:            []string{},
		StageRowCounts:    make(map[string]int),
		StartedAt:         time.Now().UTC(),
	}
}

// RecordStage appends a completed stage and its output row count
func (m *Manifest) RecordStage(name string, rows int) {
	m.Stages = append(m.Stages, name)
	m.StageRowCounts[name] = rows
}

// Finish stamps the completion time
func (m *Manifest) Finish() {
	m.FinishedAt = time.Now().UTC()
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return errEmpty("run_id")
	}
	if m.ConfigFingerprint.IsEmpty() {
		return errEmpty("config_fingerprint")
	}
	return nil
}

type manifestError string

func (e manifestError) Error() string { return string(e) }

func errEmpty(field string) error {
	return manifestError("run manifest field " + field + " cannot be empty")
}
