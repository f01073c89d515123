package docstate

import "time"

// Record is the persisted state of one logical document.
type Record struct {
	Identifier        string
	SourceFingerprint string
	// OutputFingerprint is empty when the artifact was never confirmed.
	OutputFingerprint string
	Config            RenderConfig
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasOutput reports whether an artifact fingerprint was recorded.
func (r *Record) HasOutput() bool {
	return r != nil && r.OutputFingerprint != ""
}
