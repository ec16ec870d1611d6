// Package app wires a workspace together: config file, SQLite store and
// logger. Both the CLI and the API server start from an Env.
package app

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"tenureline/internal/config"
	"tenureline/internal/db"
	"tenureline/internal/migrate"
	"tenureline/internal/repo"
)

// Env is an opened workspace.
type Env struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Log       *logrus.Entry
}

// Open loads the workspace config, opens the database and applies pending
// migrations. A workspace that was never initialized gets the default config
// and a fresh database.
func Open(workspace string, verbose bool) (*Env, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := NewLogger(verbose).WithField("workspace", workspace)

	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.Migrate(conn, log); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Env{
		Workspace: workspace,
		Config:    cfg,
		DB:        conn,
		Repo:      repo.Repo{DB: conn},
		Log:       log,
	}, nil
}

func (e *Env) Close() error {
	return e.DB.Close()
}

// NewLogger builds the process logger. Verbose switches to debug level.
func NewLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
