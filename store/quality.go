package store

import (
	"database/sql"
	"errors"
	"time"
)

// QualityRecord is one persisted quality sample from the plant feed.
type QualityRecord struct {
	ID        int64   `json:"id"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Passed    bool    `json:"passed"`
	CreatedAt string  `json:"created_at"`
}

func (db *DB) StoreQuality(metric string, value float64, passed bool) error {
	p := 0
	if passed {
		p = 1
	}
	_, err := db.Exec(db.Q(`INSERT INTO quality_records (metric, value, passed) VALUES (?, ?, ?)`),
		metric, value, p)
	return err
}

func (db *DB) ListQuality(limit int) ([]*QualityRecord, error) {
	rows, err := db.Query(db.Q(`SELECT id, metric, value, passed, created_at FROM quality_records ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*QualityRecord
	for rows.Next() {
		var r QualityRecord
		var passed int
		if err := rows.Scan(&r.ID, &r.Metric, &r.Value, &passed, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Passed = passed != 0
		records = append(records, &r)
	}
	return records, rows.Err()
}

// LatestPassRate returns the most recent pass_rate sample, or ok=false when
// no sample exists yet.
func (db *DB) LatestPassRate() (float64, bool, error) {
	var v float64
	row := db.QueryRow(db.Q(`SELECT value FROM quality_records WHERE metric = 'pass_rate' ORDER BY id DESC LIMIT 1`))
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return v, true, nil
}

// Alarm is one persisted operational alarm.
type Alarm struct {
	ID        int64  `json:"id"`
	Severity  string `json:"severity"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	ClearedAt string `json:"cleared_at,omitempty"`
}

// LogAlarm records a new active alarm.
func (db *DB) LogAlarm(severity, source, message string) error {
	_, err := db.Exec(db.Q(`INSERT INTO alarms (severity, source, message) VALUES (?, ?, ?)`),
		severity, source, message)
	return err
}

// ClearAlarms deactivates all active alarms from one source.
func (db *DB) ClearAlarms(source string) error {
	_, err := db.Exec(db.Q(`UPDATE alarms SET active = 0, cleared_at = ? WHERE source = ? AND active = 1`),
		time.Now().Format(timeLayout), source)
	return err
}

func (db *DB) ListAlarms(activeOnly bool, limit int) ([]*Alarm, error) {
	query := `SELECT id, severity, source, message, active, created_at, cleared_at FROM alarms`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id DESC LIMIT ?`
	rows, err := db.Query(db.Q(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alarms []*Alarm
	for rows.Next() {
		var a Alarm
		var active int
		if err := rows.Scan(&a.ID, &a.Severity, &a.Source, &a.Message, &active, &a.CreatedAt, &a.ClearedAt); err != nil {
			return nil, err
		}
		a.Active = active != 0
		alarms = append(alarms, &a)
	}
	return alarms, rows.Err()
}
