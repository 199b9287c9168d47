package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrKekPlag/serv2/internal/domain"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrExists             = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store holds the registered users. The snapshot is loaded once at open and
// written through on every mutation, so reads never touch the file again.
type Store struct {
	mu    sync.Mutex
	fs    afero.Fs
	path  string
	users []domain.User
}

// Open creates the backing file if needed and loads the snapshot.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{fs: fs, path: path}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		if dir := filepath.Dir(path); dir != "." {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		if err := afero.WriteFile(fs, path, []byte("[]"), 0o644); err != nil {
			return nil, err
		}
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Register hashes the password and persists the new user. The role defaults
// to "user" when empty.
func (s *Store) Register(firstName, lastName, username, password, role string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, errors.New("username is required")
	}
	if password == "" {
		return domain.User{}, errors.New("password is required")
	}
	if role == "" {
		role = "user"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return domain.User{}, ErrExists
		}
	}
	u := domain.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		Password:  string(hash),
		Role:      role,
	}
	s.users = append(s.users, u)
	if err := s.persistLocked(); err != nil {
		s.users = s.users[:len(s.users)-1]
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate verifies the password for the named user.
func (s *Store) Authenticate(username, password string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			return domain.User{}, ErrInvalidCredentials
		}
		return u, nil
	}
	return domain.User{}, ErrNotFound
}

// Delete removes the named user and persists the collection.
func (s *Store) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.Username == username {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return s.persistLocked()
		}
	}
	return ErrNotFound
}

// List returns a copy of the snapshot with password hashes stripped.
func (s *Store) List() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		u.Password = ""
		out = append(out, u)
	}
	return out
}

func (s *Store) persistLocked() error {
	users := s.users
	if users == nil {
		users = []domain.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
