package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means no user matched.
	ErrNotFound = errors.New("user not found")
	// ErrEmailExists means the email is already registered.
	ErrEmailExists = errors.New("user already exists")
	// ErrStudentRefExists means another user carries the student reference.
	ErrStudentRefExists = errors.New("student id already registered")
)

// User is an authenticated principal.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	StudentRef   *string   `json:"student_ref,omitempty"`
	Department   *string   `json:"department,omitempty"`
	Semester     *int      `json:"semester,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists users and refresh tokens in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, password_hash, role, student_ref, department, semester, created_at`

// Insert writes a new user.
func (r *Repository) Insert(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, student_ref, department, semester)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.StudentRef, u.Department, u.Semester).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "student_ref") {
				return User{}, ErrStudentRefExists
			}
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

// GetByID returns a user by id.
func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// ListAll returns every user.
func (r *Repository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.StudentRef, &u.Department, &u.Semester, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.StudentRef, &u.Department, &u.Semester, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
