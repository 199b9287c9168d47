package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/MrKekPlag/serv2/internal/config"
	"github.com/MrKekPlag/serv2/internal/engine"
	"github.com/MrKekPlag/serv2/internal/events"
	"github.com/MrKekPlag/serv2/internal/store"
	"github.com/MrKekPlag/serv2/internal/users"
)

// App bundles the wired stores and engine for one process.
type App struct {
	Config *config.Config
	Engine engine.Engine
	Users  *users.Store
}

// Build seeds missing data files and constructs the engine. Category
// collections, the status catalog and the user file are all created empty
// (or with defaults) when absent, so a fresh workspace serves immediately.
func Build(fs afero.Fs, cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	projectStore := store.NewFileStore(fs, cfg.Data.Dir)
	for _, cat := range store.AllCategories {
		if err := projectStore.Ensure(cat); err != nil {
			return nil, fmt.Errorf("ensure %s collection: %w", cat, err)
		}
	}
	statusStore := store.NewStatusStore(fs, filepath.Join(cfg.Data.Dir, "statuses.json"))
	if err := statusStore.Ensure(); err != nil {
		return nil, fmt.Errorf("ensure statuses: %w", err)
	}
	userStore, err := users.Open(fs, filepath.Join(cfg.Data.Dir, "users.json"))
	if err != nil {
		return nil, fmt.Errorf("open users: %w", err)
	}
	writer := &events.Writer{FS: fs, Path: filepath.Join(cfg.Data.Dir, "events.log")}
	return &App{
		Config: cfg,
		Engine: engine.New(projectStore, statusStore, writer),
		Users:  userStore,
	}, nil
}
