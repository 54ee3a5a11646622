package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"presence/internal/auth"
)

type fakeStore struct {
	byEmail map[string]User
	byID    map[string]User
}

func newFakeStore() *fakeStore {
	return &fakeStore{byEmail: make(map[string]User), byID: make(map[string]User)}
}

func (f *fakeStore) Insert(_ context.Context, u User) (User, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return User{}, ErrEmailExists
	}
	if u.ID == "" {
		u.ID = "user-" + u.Email
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (User, error) {
	u, ok := f.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func validInput() RegisterInput {
	return RegisterInput{
		Name:       "Alice",
		Email:      "alice@example.com",
		Password:   "hunter22",
		Role:       auth.RoleStudent,
		StudentRef: "S-001",
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := NewService(newFakeStore())

	u, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "hunter22" {
		t.Error("password stored in the clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")) != nil {
		t.Error("stored hash does not match the password")
	}
	if u.StudentRef == nil || *u.StudentRef != "S-001" {
		t.Errorf("student ref = %v, want S-001", u.StudentRef)
	}
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	svc := NewService(newFakeStore())
	in := validInput()
	in.Role = ""

	u, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != auth.RoleStudent {
		t.Errorf("role = %q, want student", u.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing name", func(in *RegisterInput) { in.Name = "" }},
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }},
		{"unknown role", func(in *RegisterInput) { in.Role = "superuser" }},
		{"student without ref", func(in *RegisterInput) { in.StudentRef = "" }},
	}
	for _, tt := range tests {
		in := validInput()
		tt.mutate(&in)
		if _, err := svc.Register(ctx, in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tt.name, err)
		}
	}

	// A teacher needs no student ref.
	in := validInput()
	in.Role = auth.RoleTeacher
	in.StudentRef = ""
	if _, err := svc.Register(ctx, in); err != nil {
		t.Errorf("teacher without ref: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, validInput()); !errors.Is(err, ErrEmailExists) {
		t.Errorf("second register err = %v, want ErrEmailExists", err)
	}
}

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	u, err := svc.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q", u.Email)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}
