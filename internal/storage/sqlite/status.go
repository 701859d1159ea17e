package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// StatusSample is one recorded component state, used for the status
// page's recent-availability strip
type StatusSample struct {
	ID        int64     `json:"id"`
	Component string    `json:"component"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	SampledAt time.Time `json:"sampled_at"`
}

// StatusStorage handles persistence of health samples
type StatusStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStatusStorage creates a status sample store on a shared database
func NewStatusStorage(db *sql.DB, logger *logger.Logger) *StatusStorage {
	storage := &StatusStorage{
		db:     db,
		logger: logger.Named("sqlite-status"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize status storage", Error(err))
	}

	return storage
}

func (s *StatusStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS status_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			component TEXT NOT NULL,
			state TEXT NOT NULL,
			detail TEXT,
			sampled_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create status_samples table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_status_samples_time ON status_samples(component, sampled_at DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create status_samples index: %w", err)
	}

	return nil
}

// Insert stores one component state sample
func (s *StatusStorage) Insert(sample *StatusSample) error {
	_, err := s.db.Exec(`
		INSERT INTO status_samples (component, state, detail, sampled_at)
		VALUES (?, ?, ?, ?)
	`, sample.Component, sample.State, sample.Detail, sample.SampledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert status sample: %w", err)
	}
	return nil
}

// GetSince returns samples for a component at or after the given time,
// oldest first. An empty component returns samples for all components.
func (s *StatusStorage) GetSince(component string, since time.Time) ([]*StatusSample, error) {
	query := `
		SELECT id, component, state, detail, sampled_at
		FROM status_samples
		WHERE sampled_at >= ?`
	args := []interface{}{since.UTC().Format(time.RFC3339)}
	if component != "" {
		query += ` AND component = ?`
		args = append(args, component)
	}
	query += ` ORDER BY sampled_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status samples: %w", err)
	}
	defer rows.Close()

	var out []*StatusSample
	for rows.Next() {
		var sample StatusSample
		var detail sql.NullString
		var sampledAt string
		if err := rows.Scan(&sample.ID, &sample.Component, &sample.State, &detail, &sampledAt); err != nil {
			return nil, fmt.Errorf("failed to scan status sample: %w", err)
		}
		t, err := time.Parse(time.RFC3339, sampledAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sampled_at: %w", err)
		}
		sample.SampledAt = t
		sample.Detail = detail.String
		out = append(out, &sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status samples: %w", err)
	}
	return out, nil
}

// Prune deletes samples older than the cutoff
func (s *StatusStorage) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM status_samples WHERE sampled_at < ?`,
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune status samples: %w", err)
	}
	return res.RowsAffected()
}
