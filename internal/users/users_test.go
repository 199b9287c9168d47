package users_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/MrKekPlag/serv2/internal/users"
)

func newStore(t *testing.T, fs afero.Fs) *users.Store {
	t.Helper()
	s, err := users.Open(fs, "data/users.json")
	if err != nil {
		t.Fatalf("open users: %v", err)
	}
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs())

	u, err := s.Register("Ivan", "Petrov", "ivan", "secret", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" {
		t.Fatal("user id not assigned")
	}
	if u.Role != "user" {
		t.Fatalf("role = %q, want user default", u.Role)
	}
	if u.Password == "secret" {
		t.Fatal("password stored in clear")
	}

	got, err := s.Authenticate("ivan", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.Username != "ivan" || got.FirstName != "Ivan" {
		t.Fatalf("authenticated user = %+v", got)
	}

	if _, err := s.Authenticate("ivan", "wrong"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := s.Authenticate("nobody", "secret"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs())
	if _, err := s.Register("Ivan", "Petrov", "ivan", "secret", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register("Other", "Person", "ivan", "other", ""); !errors.Is(err, users.ErrExists) {
		t.Fatalf("duplicate username: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs())
	if _, err := s.Register("Ivan", "Petrov", "ivan", "secret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Delete("ivan"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("ivan"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := s.Authenticate("ivan", "secret"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("deleted user still authenticates: %v", err)
	}
}

func TestListStripsPasswords(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs())
	if _, err := s.Register("Ivan", "Petrov", "ivan", "secret", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	list := s.List()
	if len(list) != 1 {
		t.Fatalf("got %d users", len(list))
	}
	if list[0].Password != "" {
		t.Fatal("password hash leaked through List")
	}
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs)
	if _, err := s.Register("Ivan", "Petrov", "ivan", "secret", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	data, err := afero.ReadFile(fs, "data/users.json")
	if err != nil {
		t.Fatalf("read users file: %v", err)
	}
	if !strings.Contains(string(data), `"username": "ivan"`) {
		t.Fatalf("users file not pretty-printed camelCase: %s", data)
	}

	reopened := newStore(t, fs)
	u, err := reopened.Authenticate("ivan", "secret")
	if err != nil {
		t.Fatalf("authenticate after reopen: %v", err)
	}
	if u.Role != "admin" {
		t.Fatalf("role = %q", u.Role)
	}
}
