package docstate

import (
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// Sentinel errors for document state operations. Errors returned by the Store
// carry context and the driver cause but still match these with errors.Is.
var (
	// ErrOpenFailed indicates the SQLite database could not be opened.
	ErrOpenFailed = errors.StorageError("could not open document state database").Build()

	// ErrMigrationFailed indicates the schema could not be brought up to date.
	ErrMigrationFailed = errors.StorageError("failed to migrate document state schema").Build()

	// ErrQueryFailed indicates a read of document state failed.
	ErrQueryFailed = errors.StorageError("failed to read document state").Build()

	// ErrCorruptRecord indicates a stored row could not be decoded.
	ErrCorruptRecord = errors.StorageError("corrupt document state record").Build()

	// ErrSaveFailed indicates an upsert failed; the previous record may or may not survive.
	ErrSaveFailed = errors.StorageError("failed to save document state").Build()

	// ErrDeleteFailed indicates removing or clearing records failed.
	ErrDeleteFailed = errors.StorageError("failed to delete document state").Build()

	// ErrInvalidRecord indicates a save was attempted without identifier or source fingerprint.
	ErrInvalidRecord = errors.ValidationError("document state requires identifier and source fingerprint").Build()
)

func storageErr(sentinel *errors.ClassifiedError, cause error) *errors.ErrorBuilder {
	return errors.StorageError(sentinel.Message()).WithCause(cause)
}
