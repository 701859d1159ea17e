package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/pkg/logger"
	_ "modernc.org/sqlite"
)

// ObservationStorage is a SQLite-based store for METAR observation history.
// It owns the database connection; other storage types share it via GetDB.
type ObservationStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewObservationStorage opens the database at dbPath and prepares the schema
func NewObservationStorage(dbPath string, log *logger.Logger) (*ObservationStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA cache_size=10000"); err != nil {
		return nil, fmt.Errorf("failed to set cache size: %w", err)
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &ObservationStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *ObservationStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *ObservationStorage) GetDB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable
func (s *ObservationStorage) Ping() error {
	return s.db.Ping()
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ident TEXT NOT NULL,
			obs_time TIMESTAMP NOT NULL,
			raw_text TEXT NOT NULL,
			flight_category TEXT,
			wind_dir_deg INTEGER,
			wind_speed_kt INTEGER,
			wind_gust_kt INTEGER,
			visibility_sm REAL,
			temp_c REAL,
			dewpoint_c REAL,
			altimeter_inhg REAL,
			ceiling_ft INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(ident, obs_time)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create observations table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_observations_ident_time ON observations(ident, obs_time DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create index on observations: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// Insert stores an observation. Returns true when the row is new; an
// observation already recorded for the same ident and time is ignored.
func (s *ObservationStorage) Insert(rec *weather.Observation) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO observations (
			ident, obs_time, raw_text, flight_category,
			wind_dir_deg, wind_speed_kt, wind_gust_kt,
			visibility_sm, temp_c, dewpoint_c, altimeter_inhg, ceiling_ft
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Ident, rec.ObsTime.UTC().Format(time.RFC3339), rec.RawText, rec.FlightCategory,
		rec.WindDirDeg, rec.WindSpeedKt, rec.WindGustKt,
		rec.VisibilitySM, rec.TempC, rec.DewpointC, rec.AltimeterInHg, rec.CeilingFt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert observation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	return n > 0, nil
}

// GetSince returns observations for an airport at or after the given
// time, oldest first.
func (s *ObservationStorage) GetSince(ident string, since time.Time) ([]*weather.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, ident, obs_time, raw_text, flight_category,
			wind_dir_deg, wind_speed_kt, wind_gust_kt,
			visibility_sm, temp_c, dewpoint_c, altimeter_inhg, ceiling_ft
		FROM observations
		WHERE ident = ? AND obs_time >= ?
		ORDER BY obs_time ASC
	`, ident, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []*weather.Observation
	for rows.Next() {
		rec, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observation rows: %w", err)
	}
	return out, nil
}

// GetLatest returns the most recent observation for an airport, or nil
// when none is recorded.
func (s *ObservationStorage) GetLatest(ident string) (*weather.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, ident, obs_time, raw_text, flight_category,
			wind_dir_deg, wind_speed_kt, wind_gust_kt,
			visibility_sm, temp_c, dewpoint_c, altimeter_inhg, ceiling_ft
		FROM observations
		WHERE ident = ?
		ORDER BY obs_time DESC
		LIMIT 1
	`, ident)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanObservation(rows)
}

func scanObservation(rows *sql.Rows) (*weather.Observation, error) {
	var rec weather.Observation
	var obsTime string
	var category sql.NullString
	var windDir, windSpeed, windGust, ceiling sql.NullInt64
	var vis, temp, dewpoint, altimeter sql.NullFloat64

	if err := rows.Scan(
		&rec.ID, &rec.Ident, &obsTime, &rec.RawText, &category,
		&windDir, &windSpeed, &windGust,
		&vis, &temp, &dewpoint, &altimeter, &ceiling,
	); err != nil {
		return nil, fmt.Errorf("failed to scan observation row: %w", err)
	}

	t, err := time.Parse(time.RFC3339, obsTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse obs_time: %w", err)
	}
	rec.ObsTime = t
	rec.FlightCategory = category.String

	rec.WindDirDeg = nullableInt(windDir)
	rec.WindSpeedKt = nullableInt(windSpeed)
	rec.WindGustKt = nullableInt(windGust)
	rec.CeilingFt = nullableInt(ceiling)
	rec.VisibilitySM = nullableFloat(vis)
	rec.TempC = nullableFloat(temp)
	rec.DewpointC = nullableFloat(dewpoint)
	rec.AltimeterInHg = nullableFloat(altimeter)

	return &rec, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Prune deletes observations older than the cutoff and returns how many
// rows were removed.
func (s *ObservationStorage) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM observations WHERE obs_time < ?`,
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune observations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned old observations", logger.Int64("rows", n))
	}
	return n, nil
}
