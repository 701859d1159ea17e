package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)

// CaptureRecord is one webcam fetch attempt in the capture log
type CaptureRecord struct {
	ID         int64     `json:"id"`
	Ident      string    `json:"ident"`
	CamID      string    `json:"cam_id"`
	FetchedAt  time.Time `json:"fetched_at"`
	OK         bool      `json:"ok"`
	Bytes      int64     `json:"bytes"`
	DurationMs int64     `json:"duration_ms"`
	ErrMsg     string    `json:"error,omitempty"`
}

// CaptureStorage handles storage of webcam capture log records
type CaptureStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCaptureStorage creates a capture log store on a shared database
func NewCaptureStorage(db *sql.DB, logger *logger.Logger) *CaptureStorage {
	storage := &CaptureStorage{
		db:     db,
		logger: logger.Named("sqlite-cam"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize capture storage", Error(err))
	}

	return storage
}

func (s *CaptureStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS captures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ident TEXT NOT NULL,
			cam_id TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			ok BOOLEAN NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create captures table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_captures_cam_time ON captures(ident, cam_id, fetched_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create captures index: %w", err)
	}

	return nil
}

// Record stores one capture attempt
func (s *CaptureStorage) Record(rec *CaptureRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO captures (ident, cam_id, fetched_at, ok, bytes, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Ident, rec.CamID, rec.FetchedAt.UTC().Format(time.RFC3339),
		boolToInt(rec.OK), rec.Bytes, rec.DurationMs, rec.ErrMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert capture record: %w", err)
	}
	return nil
}

// LastSuccess returns the time of the most recent successful capture
// for a camera, or the zero time when there is none.
func (s *CaptureStorage) LastSuccess(ident, camID string) (time.Time, error) {
	var fetchedAt string
	err := s.db.QueryRow(`
		SELECT fetched_at FROM captures
		WHERE ident = ? AND cam_id = ? AND ok = 1
		ORDER BY fetched_at DESC
		LIMIT 1
	`, ident, camID).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last success: %w", err)
	}

	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	return t, nil
}

// RecentFailures counts failed captures for a camera since the given time
func (s *CaptureStorage) RecentFailures(ident, camID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM captures
		WHERE ident = ? AND cam_id = ? AND ok = 0 AND fetched_at >= ?
	`, ident, camID, since.UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent failures: %w", err)
	}
	return n, nil
}

// Prune deletes capture log rows older than the cutoff
func (s *CaptureStorage) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM captures WHERE fetched_at < ?`,
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune captures: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
