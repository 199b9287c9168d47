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

// DefaultStatuses seeds statuses.json on first start. The catalog is what
// the web client renders in its status picker.
var DefaultStatuses = []domain.Status{
	{Name: "Запрос", Color: "#007bff"},
	{Name: "Ожидание согласования договора", Color: "#ffc107"},
	{Name: "Ожидание Оплаты", Color: "#17a2b8"},
	{Name: "В пути", Color: "#28a745"},
	{Name: "Выполнено", Color: "#6c757d"},
	{Name: "Отклонено", Color: "#dc3545"},
}

// StatusStore keeps the status catalog in one pretty-printed JSON file.
// Unlike project collections it is replaced wholesale by its write path.
type StatusStore struct {
	FS   afero.Fs
	Path string
}

func NewStatusStore(fs afero.Fs, path string) *StatusStore {
	return &StatusStore{FS: fs, Path: path}
}

// Ensure writes the default catalog if the file is missing.
func (s *StatusStore) Ensure() error {
	exists, err := afero.Exists(s.FS, s.Path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Replace(context.Background(), DefaultStatuses)
}

func (s *StatusStore) Load(_ context.Context) ([]domain.Status, error) {
	data, err := afero.ReadFile(s.FS, s.Path)
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) {
			return []domain.Status{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	statuses := []domain.Status{}
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return statuses, nil
}

func (s *StatusStore) Replace(_ context.Context, statuses []domain.Status) error {
	if statuses == nil {
		statuses = []domain.Status{}
	}
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return fmt.Errorf("encode statuses: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := s.FS.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := afero.WriteFile(s.FS, s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}
