package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qrkiosk/internal/attendance"
)

// Postgres persists attendance records in Postgres via pgx.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the records table and its indexes. Ids come from a
// sequence, so they are never reused even after a bulk clear.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id BIGSERIAL PRIMARY KEY,
			raw_text TEXT NOT NULL,
			employee_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			log_in TEXT NOT NULL DEFAULT '',
			log_out TEXT NOT NULL DEFAULT '',
			snapshot_filename TEXT,
			timestamp_ms BIGINT NOT NULL,
			source TEXT NOT NULL DEFAULT 'camera',
			mirror_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_timestamp ON attendance_records (timestamp_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records (date)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_employee ON attendance_records (employee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_records_raw_text ON attendance_records (raw_text)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, raw_text, employee_id, name, date, log_in, log_out,
	snapshot_filename, timestamp_ms, source, mirror_url, created_at`

func scanRecord(row interface{ Scan(...any) error }) (attendance.Record, error) {
	var rec attendance.Record
	var snapshotFilename, mirrorURL sql.NullString
	err := row.Scan(&rec.ID, &rec.RawText, &rec.EmployeeID, &rec.Name, &rec.Date,
		&rec.LogIn, &rec.LogOut, &snapshotFilename, &rec.Timestamp, &rec.Source,
		&mirrorURL, &rec.CreatedAt)
	if err != nil {
		return attendance.Record{}, err
	}
	if snapshotFilename.Valid {
		rec.SnapshotFilename = &snapshotFilename.String
	}
	if mirrorURL.Valid {
		rec.MirrorURL = &mirrorURL.String
	}
	return rec, nil
}

// Create inserts a new record and returns it with the assigned id.
func (p *Postgres) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(raw_text, employee_id, name, date, log_in, log_out, snapshot_filename, timestamp_ms, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`, rec.RawText, rec.EmployeeID, rec.Name, rec.Date, rec.LogIn, rec.LogOut,
		rec.SnapshotFilename, rec.Timestamp, rec.Source)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return attendance.Record{}, fmt.Errorf("store: create record: %w", err)
	}
	return rec, nil
}

// UpdateByID closes a session on an existing record.
func (p *Postgres) UpdateByID(ctx context.Context, id int64, upd attendance.RecordUpdate) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET log_out = $2, snapshot_filename = $3, timestamp_ms = $4
		WHERE id = $1
	`, id, upd.LogOut, upd.SnapshotFilename, upd.Timestamp)
	if err != nil {
		return fmt.Errorf("store: update record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update record %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a single record by id.
func (p *Postgres) GetByID(ctx context.Context, id int64) (attendance.Record, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, ErrNotFound
		}
		return attendance.Record{}, fmt.Errorf("store: get record %d: %w", id, err)
	}
	return rec, nil
}

// List returns every record ordered by timestamp. Both orderings come off
// the timestamp index.
func (p *Postgres) List(ctx context.Context, order attendance.Order) ([]attendance.Record, error) {
	dir := "ASC"
	if order == attendance.OrderDesc {
		dir = "DESC"
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records ORDER BY timestamp_ms `+dir+`, id `+dir)
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByIdentity returns the records for one date matching the scan's raw
// text, employee id, or name. Empty identity fields are not used as keys.
func (p *Postgres) ListByIdentity(ctx context.Context, rawText, employeeID, name, date string) ([]attendance.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE date = $1
		  AND (raw_text = $2
		       OR (employee_id = $3 AND $3 <> '')
		       OR (name = $4 AND $4 <> ''))
		ORDER BY timestamp_ms ASC, id ASC
	`, date, rawText, employeeID, name)
	if err != nil {
		return nil, fmt.Errorf("store: list by identity: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// SetMirrorURL stores the off-site snapshot URL written by the worker.
func (p *Postgres) SetMirrorURL(ctx context.Context, id int64, url string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE attendance_records SET mirror_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("store: set mirror url %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set mirror url %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearAll deletes every record. DELETE keeps the id sequence running so ids
// are never reused.
func (p *Postgres) ClearAll(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM attendance_records`); err != nil {
		return fmt.Errorf("store: clear records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count records: %w", err)
	}
	return n, nil
}

func collectRecords(rows *sql.Rows) ([]attendance.Record, error) {
	var out []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate records: %w", err)
	}
	return out, nil
}
