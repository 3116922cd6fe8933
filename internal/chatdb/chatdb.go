// Package chatdb reads the ChatWise SQLite database.
//
// The database has two relations: chat (conversations) and message. Search,
// view and merge open it read-only for the duration of a single call and
// close it afterwards; only the delete path opens it writable.
package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
)

var storeLog = logging.ForComponent(logging.CompStore)

// DefaultBusyTimeout is how long a reader waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Chat is a row of the chat relation. Title is nil when the column is NULL;
// LastReplyAt is zero when the column is NULL.
type Chat struct {
	ID          string
	Title       *string
	CreatedAt   int64
	LastReplyAt int64
}

// TitleText returns the title, or "" when it is NULL.
func (c *Chat) TitleText() string {
	if c == nil || c.Title == nil {
		return ""
	}
	return *c.Title
}

// ActivityAt is the chat's last activity: lastReplyAt when set, else
// createdAt. Both are raw stored values.
func (c *Chat) ActivityAt() int64 {
	if c.LastReplyAt != 0 {
		return c.LastReplyAt
	}
	return c.CreatedAt
}

// Message is a row of the message relation. Meta holds the raw metadata
// blob ("" when NULL).
type Message struct {
	ID        string
	ChatID    string
	CreatedAt int64
	Role      string
	Content   string
	Meta      string
}

// Options controls how the database is opened.
type Options struct {
	// Writable opens the database read-write. The default is read-only.
	Writable bool

	// BusyTimeout defaults to DefaultBusyTimeout.
	BusyTimeout time.Duration
}

// DB wraps a connection pool on one database file.
type DB struct {
	db       *sql.DB
	path     string
	writable bool
}

// Open opens the database at path. A missing file is reported as
// apperr.KindNotFound; a file that cannot be opened or queried as
// apperr.KindUnavailable.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperr.InvalidArgument("chatdb.open", "database path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("chatdb.open", "database not found: %s", path)
		}
		return nil, apperr.Unavailable("chatdb.open", err)
	}

	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = DefaultBusyTimeout
	}

	db, err := sql.Open("sqlite", dsn(path, opts.Writable, timeout))
	if err != nil {
		return nil, apperr.Unavailable("chatdb.open", fmt.Errorf("chatdb: open: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.Unavailable("chatdb.open", fmt.Errorf("chatdb: ping: %w", err))
	}

	storeLog.Debug("db_opened", "path", path, "writable", opts.Writable)
	return &DB{db: db, path: path, writable: opts.Writable}, nil
}

func dsn(path string, writable bool, busy time.Duration) string {
	mode := "ro"
	if writable {
		mode = "rw"
	}
	return fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(%d)", path, mode, busy.Milliseconds())
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// SQL returns the underlying sql.DB for tests and fixtures.
func (d *DB) SQL() *sql.DB {
	return d.db
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
