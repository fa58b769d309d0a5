package store

import (
	"encoding/json"
	"fmt"

	"cellcore/feed"
	"cellcore/inventory"
)

// RealtimeEvent is one persisted raw feed reading.
type RealtimeEvent struct {
	ID        int64  `json:"id"`
	NodeID    string `json:"node_id"`
	Value     string `json:"value"`
	Quality   string `json:"quality"`
	SourceTS  string `json:"source_ts"`
	CreatedAt string `json:"created_at"`
}

// StoreReading persists one raw reading. The value is stored as its JSON
// encoding so heterogeneous payloads round-trip.
func (db *DB) StoreReading(r feed.Reading) error {
	val, err := json.Marshal(r.Value)
	if err != nil {
		val = []byte(fmt.Sprintf("%q", fmt.Sprint(r.Value)))
	}
	_, err = db.Exec(db.Q(`INSERT INTO realtime_events (node_id, value, quality, source_ts) VALUES (?, ?, ?, ?)`),
		r.SourceID, string(val), r.Quality, r.Timestamp)
	return err
}

func (db *DB) ListRecentEvents(limit int) ([]*RealtimeEvent, error) {
	rows, err := db.Query(db.Q(`SELECT id, node_id, value, quality, source_ts, created_at FROM realtime_events ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*RealtimeEvent
	for rows.Next() {
		var e RealtimeEvent
		if err := rows.Scan(&e.ID, &e.NodeID, &e.Value, &e.Quality, &e.SourceTS, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// PruneEvents deletes raw readings beyond keep rows, oldest first.
func (db *DB) PruneEvents(keep int) (int64, error) {
	res, err := db.Exec(db.Q(`DELETE FROM realtime_events WHERE id <= (SELECT MAX(id) FROM realtime_events) - ?`), keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StoreTransfer records one stock movement in the audit trail.
func (db *DB) StoreTransfer(t inventory.Transfer) error {
	_, err := db.Exec(db.Q(`INSERT INTO transfers (transfer_id, warehouse, material, quantity, direction, source, dest, moved_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Warehouse, string(t.Material), t.Quantity, t.Direction, t.Source, t.Dest, t.MovedAt.Format("2006-01-02 15:04:05"))
	return err
}

// TransferRecord is one persisted stock movement.
type TransferRecord struct {
	ID        int64  `json:"id"`
	Transfer  string `json:"transfer_id"`
	Warehouse string `json:"warehouse"`
	Material  string `json:"material"`
	Quantity  int    `json:"quantity"`
	Direction string `json:"direction"`
	Source    string `json:"source"`
	Dest      string `json:"dest"`
	MovedAt   string `json:"moved_at"`
}

func (db *DB) ListTransfers(limit int) ([]*TransferRecord, error) {
	rows, err := db.Query(db.Q(`SELECT id, transfer_id, warehouse, material, quantity, direction, source, dest, moved_at FROM transfers ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transfers []*TransferRecord
	for rows.Next() {
		var t TransferRecord
		if err := rows.Scan(&t.ID, &t.Transfer, &t.Warehouse, &t.Material, &t.Quantity, &t.Direction, &t.Source, &t.Dest, &t.MovedAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, &t)
	}
	return transfers, rows.Err()
}
