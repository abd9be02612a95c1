package server

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrFileNotFound is returned by FilesStore.Get for ids with no record.
var ErrFileNotFound = errors.New("file not found")

// FileRecord is the metadata row describing one uploaded blob. The id is
// supplied by the client and doubles as the on-disk filename stem; the
// timestamps are always set server-side.
type FileRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"uploadTime"`
	ExpireTime time.Time `json:"expireTime"`
}

// FilesStore persists FileRecords in a SQLite table. Every method is a
// single statement; there are no multi-statement transactions, so callers
// get per-statement atomicity and nothing more.
type FilesStore struct {
	db    *sql.DB
	table string
}

// NewFilesStore returns a store bound to the given table, lazily creating
// the schema. Init is idempotent, so opening the same table twice is fine.
func NewFilesStore(db *sql.DB, table string) (*FilesStore, error) {
	if table == "" {
		table = "files"
	}
	s := &FilesStore{db: db, table: table}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init creates the files table if it does not exist yet. Timestamps are
// stored as RFC3339 UTC strings so that lexicographic comparison in SQL
// matches chronological order.
func (s *FilesStore) Init() error {
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		upload_time TEXT NOT NULL,
		expire_time TEXT NOT NULL
	)`, s.table))
	if err != nil {
		return fmt.Errorf("init files table: %w", err)
	}
	return nil
}

// ListAll returns every record, including expired ones. Order is not
// guaranteed.
func (s *FilesStore) ListAll() ([]FileRecord, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, name, size, upload_time, expire_time FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]FileRecord, 0)
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Get looks up a single record by id.
func (s *FilesStore) Get(id string) (FileRecord, error) {
	row := s.db.QueryRow(fmt.Sprintf(
		`SELECT id, name, size, upload_time, expire_time FROM %s WHERE id = ?`, s.table), id)
	f, err := scanFileRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, ErrFileNotFound
		}
		return FileRecord{}, err
	}
	return f, nil
}

// Insert adds one record and returns the number of rows affected. The
// caller must treat anything other than 1 as a persistence failure.
func (s *FilesStore) Insert(f FileRecord) (int64, error) {
	res, err := s.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (id, name, size, upload_time, expire_time) VALUES (?, ?, ?, ?, ?)`, s.table),
		f.ID, f.Name, f.Size, formatTime(f.UploadTime), formatTime(f.ExpireTime))
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByID removes one record. A count of 0 is legitimate: the record
// may already have been removed by a concurrent expiry sweep.
func (s *FilesStore) DeleteByID(id string) (int64, error) {
	res, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
	if err != nil {
		return 0, fmt.Errorf("delete file: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes every record whose expiry has passed. The count is
// best-effort; callers are free to ignore it.
func (s *FilesStore) DeleteExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec(fmt.Sprintf(
		`DELETE FROM %s WHERE expire_time < ?`, s.table), formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired files: %w", err)
	}
	return res.RowsAffected()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(r rowScanner) (FileRecord, error) {
	var (
		f                    FileRecord
		uploadRaw, expireRaw string
	)
	if err := r.Scan(&f.ID, &f.Name, &f.Size, &uploadRaw, &expireRaw); err != nil {
		return FileRecord{}, err
	}
	var err error
	if f.UploadTime, err = time.Parse(time.RFC3339Nano, uploadRaw); err != nil {
		return FileRecord{}, fmt.Errorf("parse upload_time: %w", err)
	}
	if f.ExpireTime, err = time.Parse(time.RFC3339Nano, expireRaw); err != nil {
		return FileRecord{}, fmt.Errorf("parse expire_time: %w", err)
	}
	return f, nil
}

// timeLayout is RFC3339 with a fixed-width fractional second. The fixed
// width matters: expiry filtering compares these strings in SQL, and only
// fixed-width timestamps sort lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
