package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pwalczak/meteolog/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database file at path and brings the schema up to date.
// Pragmas go through the DSN so every pooled connection gets them, not just
// the one that happened to run an Exec. Cascade deletes depend on
// foreign_keys, so that one is verified rather than assumed.
func Open(path string) (*Store, *sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		db.Close()
		return nil, nil, fmt.Errorf("foreign_keys pragma did not take effect")
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, db, nil
}

func (s *Store) UpsertLocation(loc models.Location) error {
	_, err := s.db.Exec(`
		INSERT INTO locations (city_name, latitude, longitude, timezone, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(city_name) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			timezone = excluded.timezone,
			active = excluded.active
	`, loc.CityName, loc.Latitude, loc.Longitude, loc.Timezone, loc.Active)
	return err
}

// DeleteLocation removes a location; its weather logs and their predictions
// go with it via cascade.
func (s *Store) DeleteLocation(id int64) error {
	_, err := s.db.Exec(`DELETE FROM locations WHERE id = ?`, id)
	return err
}

// GetActiveLocations returns active locations in a stable order so batch runs
// always process them in the same sequence.
func (s *Store) GetActiveLocations() ([]models.Location, error) {
	rows, err := s.db.Query(`
		SELECT id, city_name, latitude, longitude, timezone, active
		FROM locations
		WHERE active = TRUE
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.ID, &loc.CityName, &loc.Latitude, &loc.Longitude, &loc.Timezone, &loc.Active); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (s *Store) InsertWeatherLog(wl *models.WeatherLog) error {
	res, err := s.db.Exec(`
		INSERT INTO weather_logs (location_id, dt_iso, temp, temp_min, temp_max, pressure, humidity, wind_speed, wind_deg, rain_1h, rain_3h, snow_3h, clouds_all, weather_id, weather_main, weather_description, weather_icon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, wl.LocationID, wl.DtISO, wl.Temp, wl.TempMin, wl.TempMax, wl.Pressure, wl.Humidity, wl.WindSpeed, wl.WindDeg, wl.Rain1h, wl.Rain3h, wl.Snow3h, wl.CloudsAll, wl.WeatherID, wl.WeatherMain, wl.WeatherDescription, wl.WeatherIcon)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	wl.ID = id
	return nil
}

func (s *Store) GetWeatherLogs(locationID int64) ([]models.WeatherLog, error) {
	rows, err := s.db.Query(`
		SELECT id, location_id, dt_iso, temp, temp_min, temp_max, pressure, humidity, wind_speed, wind_deg, rain_1h, rain_3h, snow_3h, clouds_all, weather_id, weather_main, weather_description, weather_icon, created_at
		FROM weather_logs
		WHERE location_id = ?
		ORDER BY created_at ASC, id ASC
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.WeatherLog
	for rows.Next() {
		var wl models.WeatherLog
		if err := rows.Scan(&wl.ID, &wl.LocationID, &wl.DtISO, &wl.Temp, &wl.TempMin, &wl.TempMax, &wl.Pressure, &wl.Humidity, &wl.WindSpeed, &wl.WindDeg, &wl.Rain1h, &wl.Rain3h, &wl.Snow3h, &wl.CloudsAll, &wl.WeatherID, &wl.WeatherMain, &wl.WeatherDescription, &wl.WeatherIcon, &wl.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, wl)
	}
	return logs, rows.Err()
}

func (s *Store) InsertPrediction(p *models.Prediction) error {
	res, err := s.db.Exec(`
		INSERT INTO predictions (weather_log_id, score)
		VALUES (?, ?)
	`, p.WeatherLogID, p.Score)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// GetPrediction returns the prediction for a weather log, or nil if none exists.
func (s *Store) GetPrediction(weatherLogID int64) (*models.Prediction, error) {
	row := s.db.QueryRow(`
		SELECT id, weather_log_id, score, created_at
		FROM predictions
		WHERE weather_log_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, weatherLogID)

	var p models.Prediction
	err := row.Scan(&p.ID, &p.WeatherLogID, &p.Score, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadEncoderMappings returns all persisted fallback mappings keyed by column
// name. Missing table rows simply yield an empty inner map.
func (s *Store) LoadEncoderMappings() (map[string]map[string]int, error) {
	rows, err := s.db.Query(`SELECT column_name, value, code FROM encoder_mappings ORDER BY column_name, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]map[string]int)
	for rows.Next() {
		var column, value string
		var code int
		if err := rows.Scan(&column, &value, &code); err != nil {
			return nil, err
		}
		if mappings[column] == nil {
			mappings[column] = make(map[string]int)
		}
		mappings[column][value] = code
	}
	return mappings, rows.Err()
}

// SaveEncoderMapping persists a synthesized column mapping in one transaction
// so a partially written dictionary never becomes visible to later runs.
func (s *Store) SaveEncoderMapping(column string, mapping map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for value, code := range mapping {
		if _, err := tx.Exec(`
			INSERT INTO encoder_mappings (column_name, value, code)
			VALUES (?, ?, ?)
			ON CONFLICT(column_name, value) DO NOTHING
		`, column, value, code); err != nil {
			return fmt.Errorf("save mapping %s=%q: %w", column, value, err)
		}
	}
	return tx.Commit()
}
