// Package docstate persists what was last rendered for each source document and
// decides whether a new rendering can be skipped.
//
// A Record ties a document identifier to the fingerprint of its source, the
// fingerprint of the produced artifact and the RenderConfig used to produce it.
// Staleness is never stored: Check recomputes it on every call by comparing the
// current source fingerprint and configuration with the record and by
// re-fingerprinting the artifact on disk, so deleted, edited or truncated
// outputs are detected.
//
// Typical use:
//
//	stale, err := store.NeedsRegeneration(ctx, id, sourceFP, outputPath, cfg)
//	if err != nil { ... }
//	if stale {
//		// render, then
//		err = store.Save(ctx, id, sourceFP, outputFP, cfg)
//	}
//
// Every operation is a single statement or a single short transaction, so the
// Store is safe for concurrent use by several workers.
package docstate
