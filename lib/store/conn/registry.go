package conn

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	_ "modernc.org/sqlite"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// JournalSizeLimit caps the transaction log at 100 MiB.
const JournalSizeLimit = 100 * 1024 * 1024

// The files are only used to offload data from memory, so durability is
// traded for speed. Exclusive locking makes a second process fail fast
// instead of corrupting the file.
var pragmas = []string{
	"locking_mode(EXCLUSIVE)",
	"synchronous(OFF)",
	"journal_mode(MEMORY)",
	fmt.Sprintf("journal_size_limit(%d)", JournalSizeLimit),
}

var log = logger.GetLogger("conn")

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// entry is the registry state of one database file
type entry struct {
	db   *sql.DB
	refs int
}

// Registry hands out one shared connection per database file and closes it
// when the last owner releases it. Sharing is required because the exclusive
// locking mode allows only one open handle per file; it also lets a query join
// tables of different collections stored in the same file.
//
// A Registry is safe for concurrent use. The zero value is not usable, use NewRegistry.
type Registry struct {
	conns *xsync.MapOf[string, entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: xsync.NewMapOf[string, entry](),
	}
}

// Acquire returns the shared connection for path, opening and configuring it
// if no collection holds it yet, and increments its open count.
func (r *Registry) Acquire(path string) (*sql.DB, error) {
	key, err := normalize(path)
	if err != nil {
		return nil, err
	}

	var openErr error
	e, _ := r.conns.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded {
			old.refs++
			return old, false
		}
		db, err := open(key)
		if err != nil {
			openErr = err
			return entry{}, true
		}
		log.Infof("opened database %s", key)
		return entry{db: db, refs: 1}, false
	})
	if openErr != nil {
		return nil, openErr
	}

	log.Debugf("acquired %s (open count %d)", key, e.refs)
	return e.db, nil
}

// Release decrements the open count of path. The connection is closed and
// the entry removed when the count reaches zero. Releasing a path that holds
// no connection returns an ErrReferenceCount error.
func (r *Registry) Release(path string) error {
	key, err := normalize(path)
	if err != nil {
		return err
	}

	var releaseErr error
	r.conns.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			releaseErr = store.NewError(store.ErrCReferenceCount,
				fmt.Sprintf("release of %s without a matching acquire", key))
			return entry{}, true
		}
		old.refs--
		if old.refs > 0 {
			log.Debugf("released %s (open count %d)", key, old.refs)
			return old, false
		}
		if err := old.db.Close(); err != nil {
			releaseErr = fmt.Errorf("close database %s: %w", key, err)
		}
		log.Infof("closed database %s", key)
		return entry{}, true
	})
	return releaseErr
}

// RefCount returns the open count of path, zero if it holds no connection.
func (r *Registry) RefCount(path string) int {
	key, err := normalize(path)
	if err != nil {
		return 0
	}
	e, ok := r.conns.Load(key)
	if !ok {
		return 0
	}
	return e.refs
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	return r.conns.Size()
}

// CloseAll closes every connection regardless of its open count. It is meant
// for process shutdown; collections still holding a closed connection fail
// on their next database access.
func (r *Registry) CloseAll() error {
	var errs []error
	r.conns.Range(func(key string, e entry) bool {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database %s: %w", key, err))
		}
		r.conns.Delete(key)
		return true
	})
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// normalize turns path into the registry key
func normalize(path string) (string, error) {
	if path == "" {
		return "", store.NewError(store.ErrCConfiguration, "database path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve database path %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// dsn builds the data source name with all connection pragmas. The driver
// applies them to every connection it opens.
func dsn(path string) string {
	s := path
	for i, p := range pragmas {
		if i == 0 {
			s += "?"
		} else {
			s += "&"
		}
		s += "_pragma=" + p
	}
	return s
}

// open opens a SQLite database at the given path and configures it for use.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Exactly one connection: exclusive locking rejects a second handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
