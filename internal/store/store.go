package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/MrKekPlag/serv2/internal/domain"
)

// Category identifies one of the three fixed project collections.
type Category string

const (
	CategoryDefault     Category = "projects"
	CategoryGeneration  Category = "generation"
	CategoryRealization Category = "realization"
)

// AllCategories is the fixed order used for listing and propagation.
var AllCategories = []Category{CategoryDefault, CategoryGeneration, CategoryRealization}

// Resolve maps a request category tag to a collection. Empty or unknown tags
// resolve to the default collection; several callers rely on that fallback,
// so it must not become an error.
func Resolve(tag string) Category {
	switch tag {
	case string(CategoryGeneration):
		return CategoryGeneration
	case string(CategoryRealization):
		return CategoryRealization
	default:
		return CategoryDefault
	}
}

var ErrNotFound = errors.New("not found")

// ProjectStore reads and writes whole category collections. Save replaces
// the collection; there are no partial updates, and concurrent saves derived
// from stale loads last-write-win.
type ProjectStore interface {
	Load(ctx context.Context, cat Category) ([]domain.Project, error)
	Save(ctx context.Context, cat Category, projects []domain.Project) error
	Ensure(cat Category) error
}

// FileStore keeps each category in one pretty-printed JSON file under Dir.
type FileStore struct {
	FS  afero.Fs
	Dir string
}

func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{FS: fs, Dir: dir}
}

func (s *FileStore) path(cat Category) string {
	name := "projects.json"
	switch cat {
	case CategoryGeneration:
		name = "generationProjects.json"
	case CategoryRealization:
		name = "realizationProjects.json"
	}
	return filepath.Join(s.Dir, name)
}

// Load returns the full collection, or an empty one when the backing file
// does not exist yet.
func (s *FileStore) Load(_ context.Context, cat Category) ([]domain.Project, error) {
	data, err := afero.ReadFile(s.FS, s.path(cat))
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) {
			return []domain.Project{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path(cat), err)
	}
	projects := []domain.Project{}
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path(cat), err)
	}
	return projects, nil
}

// Save replaces the collection file with the given sequence.
func (s *FileStore) Save(_ context.Context, cat Category, projects []domain.Project) error {
	if projects == nil {
		projects = []domain.Project{}
	}
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s collection: %w", cat, err)
	}
	if err := s.FS.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(s.FS, s.path(cat), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path(cat), err)
	}
	return nil
}

// Ensure creates the backing file as an empty collection if it is missing.
func (s *FileStore) Ensure(cat Category) error {
	if err := s.FS.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	exists, err := afero.Exists(s.FS, s.path(cat))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return afero.WriteFile(s.FS, s.path(cat), []byte("[]"), 0o644)
}
