package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"presence/internal/auth"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrValidation means the registration input was malformed.
	ErrValidation = errors.New("invalid registration input")
)

// UserStore is the slice of the repository the service needs.
type UserStore interface {
	Insert(ctx context.Context, u User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

// Service handles registration and login on top of the repository.
type Service struct {
	repo UserStore
}

// NewService creates a service backed by a user store.
func NewService(repo UserStore) *Service {
	return &Service{repo: repo}
}

// RegisterInput is what a new principal supplies.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	StudentRef string
	Department string
	Semester   int
}

// Register validates input, hashes the password and persists the user.
// Students must carry a student reference.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if in.Name == "" || in.Email == "" || len(in.Password) < 6 {
		return User{}, ErrValidation
	}
	if in.Role == "" {
		in.Role = auth.RoleStudent
	}
	if !auth.ValidRole(in.Role) {
		return User{}, ErrValidation
	}
	if in.Role == auth.RoleStudent && in.StudentRef == "" {
		return User{}, ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if in.StudentRef != "" {
		u.StudentRef = &in.StudentRef
	}
	if in.Department != "" {
		u.Department = &in.Department
	}
	if in.Semester > 0 {
		u.Semester = &in.Semester
	}
	return s.repo.Insert(ctx, u)
}

// Login verifies credentials and returns the user.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Profile returns the user behind a principal id.
func (s *Service) Profile(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}
