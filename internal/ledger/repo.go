package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate means a record already exists for the (group, person, day) key.
var ErrDuplicate = errors.New("attendance already recorded for this day")

// ErrNotFound means no record matched.
var ErrNotFound = errors.New("attendance record not found")

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, group_id, person_id, day, status, marked_via, marked_at`

// InsertUnique writes a new record, relying on the unique
// (group_id, person_id, day) constraint for the at-most-once-per-day
// guarantee. A losing concurrent insert surfaces as ErrDuplicate.
func (r *Repository) InsertUnique(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	rec.Day = Day(rec.Day)
	if rec.Status == "" {
		rec.Status = StatusPresent
	}
	if rec.MarkedVia == "" {
		rec.MarkedVia = ViaToken
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, group_id, person_id, day, status, marked_via, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.GroupID, rec.PersonID, rec.Day, rec.Status, rec.MarkedVia, rec.MarkedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return rec, nil
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// FindByGroup returns a group's records, newest day first.
func (r *Repository) FindByGroup(ctx context.Context, groupID string) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE group_id = $1
		ORDER BY day DESC, marked_at DESC
	`, groupID)
}

// FindByPerson returns a person's records, newest day first. groupID narrows
// the result when non-empty.
func (r *Repository) FindByPerson(ctx context.Context, personID, groupID string) ([]Record, error) {
	if groupID != "" {
		return r.queryRecords(ctx, `
			SELECT `+recordColumns+` FROM attendance_records
			WHERE person_id = $1 AND group_id = $2
			ORDER BY day DESC, marked_at DESC
		`, personID, groupID)
	}
	return r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE person_id = $1
		ORDER BY day DESC, marked_at DESC
	`, personID)
}

// FindAll returns every record, newest day first.
func (r *Repository) FindAll(ctx context.Context) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		ORDER BY day DESC, marked_at DESC
	`)
}

// DistinctSessionDates returns the calendar days with at least one record for
// the group, the system's proxy for "a session occurred".
func (r *Repository) DistinctSessionDates(ctx context.Context, groupID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT day FROM attendance_records WHERE group_id = $1 ORDER BY day
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, Day(d))
	}
	return dates, rows.Err()
}

// CountByDay returns per-day event counts for the group, ascending by day.
func (r *Repository) CountByDay(ctx context.Context, groupID string) ([]DayCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, COUNT(*) FROM attendance_records
		WHERE group_id = $1
		GROUP BY day
		ORDER BY day
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		dc.Day = Day(dc.Day)
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// CountPresent counts a person's present or late records in the group.
func (r *Repository) CountPresent(ctx context.Context, groupID, personID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records
		WHERE group_id = $1 AND person_id = $2 AND status IN ($3, $4)
	`, groupID, personID, StatusPresent, StatusLate).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.GroupID, &rec.PersonID, &rec.Day, &rec.Status, &rec.MarkedVia, &rec.MarkedAt); err != nil {
		return Record{}, err
	}
	rec.Day = Day(rec.Day)
	return rec, nil
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
