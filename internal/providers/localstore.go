package providers

import (
	"context"
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
)

// LocalStoreProbe verifies the local SQLite datastore opens and answers a
// trivial query. The datastore has no credential axes: it is always
// initialized and never requires setup, so its status is purely this probe.
type LocalStoreProbe struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewLocalStoreProbe creates a probe for the datastore at path.
func NewLocalStoreProbe(path string) *LocalStoreProbe {
	return &LocalStoreProbe{path: path}
}

// NewLocalStoreProbeWithDB creates a probe over an existing handle.
// Used by tests to substitute a mock driver.
func NewLocalStoreProbeWithDB(db *sql.DB) *LocalStoreProbe {
	return &LocalStoreProbe{db: db}
}

// TestConnectivity pings the database and runs a single-row query. The
// handle is opened lazily and kept for subsequent checks.
func (p *LocalStoreProbe) TestConnectivity(ctx context.Context) (string, error) {
	db, err := p.handle()
	if err != nil {
		return "", mserrors.StorageError{Op: "open", Message: "local datastore", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		return "", mserrors.StorageError{Op: "ping", Message: "local datastore", Err: err}
	}

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return "", mserrors.StorageError{Op: "query", Message: "local datastore", Err: err}
	}
	return "", nil
}

// Close releases the underlying handle.
func (p *LocalStoreProbe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *LocalStoreProbe) handle() (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return p.db, nil
	}
	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		return nil, err
	}
	p.db = db
	return db, nil
}
