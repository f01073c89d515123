package docstate

// StaleReason explains the outcome of a staleness check.
type StaleReason string

const (
	// ReasonFresh means the existing artifact is valid and rendering can be skipped.
	ReasonFresh StaleReason = "fresh"

	ReasonNoRecord            StaleReason = "no_record"
	ReasonSourceChanged       StaleReason = "source_changed"
	ReasonConfigChanged       StaleReason = "config_changed"
	ReasonNoOutputFingerprint StaleReason = "no_output_fingerprint"
	ReasonOutputMissing       StaleReason = "output_missing"
	ReasonOutputModified      StaleReason = "output_modified"
	ReasonOutputUnreadable    StaleReason = "output_unreadable"
)

// Stale reports whether the reason requires regeneration.
func (r StaleReason) Stale() bool {
	return r != ReasonFresh
}

// Reasons lists every possible check outcome, fresh first.
func Reasons() []StaleReason {
	return []StaleReason{
		ReasonFresh,
		ReasonNoRecord,
		ReasonSourceChanged,
		ReasonConfigChanged,
		ReasonNoOutputFingerprint,
		ReasonOutputMissing,
		ReasonOutputModified,
		ReasonOutputUnreadable,
	}
}
