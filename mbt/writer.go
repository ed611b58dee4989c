package mbt

import (
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"github.com/astrovis/go-skytiles/tile"
)

// Writer implements tile.Writer interface for SQLite tile stores.
type Writer struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger

	// SQLite allows a single writer at a time; builds write tiles from
	// many goroutines.
	mu sync.Mutex
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata writes the given pairs into the metadata table when the
// store is created. Builders record pyramid depth, tile size and pixel
// format here so readers can interpret the tiles.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new Writer for writing to a SQLite tile store.
// It applies given options and initializes database for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			level INTEGER,
			x INTEGER,
			y INTEGER,
			data BLOB
		);
	`)
	if err != nil {
		return nil, err
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := db.Prepare("INSERT INTO tiles (level, x, y, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}

	return &Writer{db: db, stmt: stmt, logger: config.Logger}, nil
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

func (w *Writer) WriteTile(pos tile.Pos, tileData []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.stmt.Exec(pos.N, pos.X, pos.Y, tileData)
	return err
}

func (w *Writer) Finalize() error {
	w.logger.Debug("skytiles: creating tile index")
	_, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (level, x, y)")
	return err
}
