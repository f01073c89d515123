package docstate

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/mdconvert/internal/fingerprint"
	ferrors "git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
)

const selectColumns = `identifier, source_fingerprint, output_fingerprint, style_profile,
	max_diagram_width, max_diagram_height, page_margins, has_page_numbers,
	created_at, updated_at`

// Get returns the record for id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM document_state WHERE identifier = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, withIdentifier(err, id)
	}
	return rec, nil
}

// Check decides whether the artifact at outputPath is still valid for the given
// source fingerprint and configuration. It returns ReasonFresh only when the
// record exists, the source and the full configuration match, an output
// fingerprint is recorded, the output exists and its current fingerprint
// matches. Failing to fingerprint the output yields ReasonOutputUnreadable
// rather than an error; failing to read the record is a StorageError.
func (s *Store) Check(ctx context.Context, id, sourceFP, outputPath string, cfg RenderConfig) (StaleReason, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	reason := evaluate(rec, sourceFP, outputPath, cfg)
	if reason == ReasonConfigChanged {
		s.logger.Debug("Render configuration changed",
			logfields.Document(id),
			slog.Any("fields", rec.Config.Diff(cfg)))
	}
	s.logger.Debug("Document state checked", logfields.Document(id), logfields.Reason(string(reason)))
	return reason, nil
}

// NeedsRegeneration reports whether the artifact must be rendered again.
func (s *Store) NeedsRegeneration(ctx context.Context, id, sourceFP, outputPath string, cfg RenderConfig) (bool, error) {
	reason, err := s.Check(ctx, id, sourceFP, outputPath, cfg)
	if err != nil {
		return true, err
	}
	return reason.Stale(), nil
}

func evaluate(rec *Record, sourceFP, outputPath string, cfg RenderConfig) StaleReason {
	if rec == nil {
		return ReasonNoRecord
	}
	if rec.SourceFingerprint != sourceFP {
		return ReasonSourceChanged
	}
	if !rec.Config.Equal(cfg) {
		return ReasonConfigChanged
	}
	if !rec.HasOutput() {
		return ReasonNoOutputFingerprint
	}
	if _, err := os.Stat(outputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ReasonOutputMissing
		}
		return ReasonOutputUnreadable
	}
	current, err := fingerprint.File(outputPath)
	if err != nil {
		return ReasonOutputUnreadable
	}
	if current != rec.OutputFingerprint {
		return ReasonOutputModified
	}
	return ReasonFresh
}

// Save upserts the record for id, replacing the source fingerprint, the output
// fingerprint (empty stores NULL) and every configuration field. created_at is
// kept for existing records; updated_at is refreshed. The write is a single
// statement, so either the whole record is replaced or none of it is.
func (s *Store) Save(ctx context.Context, id, sourceFP, outputFP string, cfg RenderConfig) error {
	if id == "" || sourceFP == "" {
		return ferrors.ValidationError(ErrInvalidRecord.Message()).
			WithContext("identifier", id).
			Build()
	}

	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_state (
			identifier, source_fingerprint, output_fingerprint, style_profile,
			max_diagram_width, max_diagram_height, page_margins, has_page_numbers,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			source_fingerprint = excluded.source_fingerprint,
			output_fingerprint = excluded.output_fingerprint,
			style_profile = excluded.style_profile,
			max_diagram_width = excluded.max_diagram_width,
			max_diagram_height = excluded.max_diagram_height,
			page_margins = excluded.page_margins,
			has_page_numbers = excluded.has_page_numbers,
			updated_at = excluded.updated_at`,
		id, sourceFP, nullString(outputFP), cfg.StyleProfile,
		nullString(cfg.MaxDiagramWidth.String()), nullString(cfg.MaxDiagramHeight.String()),
		nullString(cfg.PageMargins), boolToInt(cfg.PageNumbers),
		now, now,
	)
	if err != nil {
		return storageErr(ErrSaveFailed, err).WithContext("identifier", id).Build()
	}
	return nil
}

// UpdateOutputFingerprint sets only the output fingerprint of an existing
// record. It reports whether a record was updated.
func (s *Store) UpdateOutputFingerprint(ctx context.Context, id, outputFP string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE document_state SET output_fingerprint = ?, updated_at = ? WHERE identifier = ?",
		nullString(outputFP), s.now().UnixNano(), id)
	if err != nil {
		return false, storageErr(ErrSaveFailed, err).WithContext("identifier", id).Build()
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(ErrSaveFailed, err).WithContext("identifier", id).Build()
	}
	return n > 0, nil
}

// Remove deletes the record for id. Removing an absent record is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM document_state WHERE identifier = ?", id); err != nil {
		return storageErr(ErrDeleteFailed, err).WithContext("identifier", id).Build()
	}
	return nil
}

// Clear deletes every record and returns how many existed. The schema is kept.
func (s *Store) Clear(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr(ErrDeleteFailed, err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM document_state").Scan(&count); err != nil {
		return 0, storageErr(ErrDeleteFailed, err).Build()
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_state"); err != nil {
		return 0, storageErr(ErrDeleteFailed, err).Build()
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr(ErrDeleteFailed, err).Build()
	}
	return count, nil
}

// ListAll returns every record, most recently updated first.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM document_state ORDER BY updated_at DESC, identifier ASC")
	if err != nil {
		return nil, storageErr(ErrQueryFailed, err).Build()
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(ErrQueryFailed, err).Build()
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document_state").Scan(&n); err != nil {
		return 0, storageErr(ErrQueryFailed, err).Build()
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		outputFP, width      sql.NullString
		height, margins      sql.NullString
		pageNumbers          int
		createdNano, updNano int64
	)
	err := row.Scan(&rec.Identifier, &rec.SourceFingerprint, &outputFP, &rec.Config.StyleProfile,
		&width, &height, &margins, &pageNumbers, &createdNano, &updNano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr(ErrQueryFailed, err).Build()
	}

	rec.OutputFingerprint = outputFP.String
	rec.Config.PageMargins = margins.String
	rec.Config.PageNumbers = pageNumbers != 0
	if rec.Config.MaxDiagramWidth, err = ParseDimension(width.String); err != nil {
		return nil, storageErr(ErrCorruptRecord, err).
			WithContext("identifier", rec.Identifier).
			WithContext("column", "max_diagram_width").
			Build()
	}
	if rec.Config.MaxDiagramHeight, err = ParseDimension(height.String); err != nil {
		return nil, storageErr(ErrCorruptRecord, err).
			WithContext("identifier", rec.Identifier).
			WithContext("column", "max_diagram_height").
			Build()
	}
	rec.CreatedAt = time.Unix(0, createdNano)
	rec.UpdatedAt = time.Unix(0, updNano)
	return &rec, nil
}

func withIdentifier(err error, id string) error {
	if c, ok := ferrors.AsClassified(err); ok {
		b := ferrors.NewError(c.Category(), c.Message()).
			WithSeverity(c.Severity()).
			WithRetry(c.RetryStrategy()).
			WithCause(c.Cause())
		for k, v := range c.Context() {
			b = b.WithContext(k, v)
		}
		return b.WithContext("identifier", id).Build()
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
