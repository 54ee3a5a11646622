package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means the group does not exist.
	ErrNotFound = errors.New("group not found")
	// ErrCodeExists means another group already uses the code.
	ErrCodeExists = errors.New("group code already exists")
	// ErrAlreadyEnrolled means the person is already a member.
	ErrAlreadyEnrolled = errors.New("person already enrolled")
)

// Group is a unit people enroll in and attend. One owner issues its sessions.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	OwnerID      string    `json:"owner_id"`
	Department   *string   `json:"department,omitempty"`
	Semester     *int      `json:"semester,omitempty"`
	AcademicYear *string   `json:"academic_year,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Member is an enrolled person with display fields for analytics views.
type Member struct {
	PersonID   string  `json:"person_id"`
	Name       string  `json:"name"`
	StudentRef *string `json:"student_ref,omitempty"`
}

// Repository persists groups and memberships in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const groupColumns = `id, name, code, owner_id, department, semester, academic_year, active, created_at`

// CreateGroup inserts a new group with a unique code.
func (r *Repository) CreateGroup(ctx context.Context, g Group) (Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Active = true
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO groups (id, name, code, owner_id, department, semester, academic_year, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, g.ID, g.Name, g.Code, g.OwnerID, g.Department, g.Semester, g.AcademicYear, g.Active).Scan(&g.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Group{}, ErrCodeExists
		}
		return Group{}, err
	}
	return g, nil
}

// GetGroup returns a group by id.
func (r *Repository) GetGroup(ctx context.Context, id string) (Group, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, ErrNotFound
	}
	return g, err
}

// ListByOwner returns the groups a person owns.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Group, error) {
	return r.queryGroups(ctx, `
		SELECT `+groupColumns+` FROM groups WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
}

// ListByMember returns the groups a person is enrolled in.
func (r *Repository) ListByMember(ctx context.Context, personID string) ([]Group, error) {
	return r.queryGroups(ctx, `
		SELECT `+groupColumns+` FROM groups g
		JOIN memberships m ON m.group_id = g.id
		WHERE m.person_id = $1
		ORDER BY g.created_at DESC
	`, personID)
}

// ListAll returns every group.
func (r *Repository) ListAll(ctx context.Context) ([]Group, error) {
	return r.queryGroups(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY created_at DESC`)
}

// Enroll adds a person to a group. Duplicate enrollment is rejected by the
// membership primary key, missing group or person by foreign keys.
func (r *Repository) Enroll(ctx context.Context, groupID, personID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (group_id, person_id) VALUES ($1, $2)
	`, groupID, personID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrAlreadyEnrolled
			case pgerrcode.ForeignKeyViolation:
				return ErrNotFound
			}
		}
		return err
	}
	return nil
}

// IsMember reports whether the person is enrolled in the group.
func (r *Repository) IsMember(ctx context.Context, groupID, personID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships WHERE group_id = $1 AND person_id = $2
	`, groupID, personID).Scan(&n)
	return n > 0, err
}

// ListMembers returns the group's enrolled people with display fields.
func (r *Repository) ListMembers(ctx context.Context, groupID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.student_ref
		FROM memberships m
		JOIN users u ON u.id = m.person_id
		WHERE m.group_id = $1
		ORDER BY u.name
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.PersonID, &m.Name, &m.StudentRef); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanGroup(row *sql.Row) (Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.Code, &g.OwnerID, &g.Department, &g.Semester, &g.AcademicYear, &g.Active, &g.CreatedAt)
	return g, err
}

func (r *Repository) queryGroups(ctx context.Context, query string, args ...any) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Code, &g.OwnerID, &g.Department, &g.Semester, &g.AcademicYear, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}
